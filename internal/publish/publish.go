// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package publish commits rendered data dictionaries into a documentation
// git repository and can undo the last dictionary commit.
package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName     = "datadict"
	authorEmail    = "noreply@datadict"
	generatedBy    = "Generated-By: datadict"
	defaultSubdir  = "data-dictionary"
	publishFileMod = 0o644
)

// ErrNoGit is returned when the working directory is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// ErrDirtyFile is returned when the target file has uncommitted changes.
var ErrDirtyFile = errors.New("dictionary file has uncommitted changes")

// ErrNotDictionaryCommit is returned when undo targets a commit not made by datadict.
var ErrNotDictionaryCommit = errors.New("not a datadict commit")

// ErrForeignChange is returned when a datadict commit also touched files
// outside the dictionary directory.
var ErrForeignChange = errors.New("commit changes files outside the dictionary directory")

// Config configures the publisher.
type Config struct {
	WorkDir    string // Repository working directory
	Dir        string // Directory inside the repository (default "data-dictionary")
	AutoCommit bool   // Commit after writing; false only writes the file
}

// Undone describes a reverted dictionary commit.
type Undone struct {
	Commit string   `json:"commit"`
	Paths  []string `json:"paths"` // Repository-relative paths the commit changed
}

// Result describes a publish.
type Result struct {
	Path    string        `json:"path"`              // Repository-relative path of the dictionary
	Changed bool          `json:"changed"`           // False when the content was already up to date
	Commit  string        `json:"commit,omitempty"`  // Commit hash, empty when nothing was committed
	Summary ChangeSummary `json:"summary"`
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
}

// Open opens an existing git repository at the configured work directory.
// Returns ErrNoGit if the directory is not a git repository.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpen(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultSubdir
	}
	cfg.Dir = filepath.ToSlash(filepath.Clean(cfg.Dir))
	return &Repo{repo: r, cfg: cfg}, nil
}

// Publish writes content to Dir/fileName and commits it. Content equal to
// what is already on disk is left alone and reported with Changed false.
// With AutoCommit, a file carrying uncommitted edits is refused so the
// commit never sweeps them in. Without it the working tree is the caller's
// to commit, so pending changes to the file are expected.
func (r *Repo) Publish(fileName string, content []byte, solution string) (*Result, error) {
	rel := filepath.ToSlash(filepath.Join(r.cfg.Dir, fileName))
	abs := filepath.Join(r.cfg.WorkDir, filepath.FromSlash(rel))
	result := &Result{Path: rel}

	previous, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	existed := err == nil

	if existed && string(previous) == string(content) {
		return result, nil
	}

	if r.cfg.AutoCommit {
		dirty, err := r.isFileDirty(rel)
		if err != nil {
			return nil, err
		}
		if dirty {
			return nil, fmt.Errorf("%w: %s", ErrDirtyFile, rel)
		}
	}
	result.Changed = true
	result.Summary = Summarize(string(previous), string(content))

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	if err := os.WriteFile(abs, content, publishFileMod); err != nil {
		return nil, fmt.Errorf("writing %s: %w", rel, err)
	}

	if !r.cfg.AutoCommit {
		return result, nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	if _, err := wt.Add(rel); err != nil {
		return nil, fmt.Errorf("staging %s: %w", rel, err)
	}

	msg := GenerateMessage(solution, rel, !existed, result.Summary)
	hash, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	result.Commit = hash.String()
	return result, nil
}

// Undo reverts HEAD when it is a datadict commit that changed nothing
// outside the dictionary directory. The soft reset keeps the dictionary
// files in the working tree.
func (r *Repo) Undo() (*Undone, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	if !strings.Contains(commit.Message, generatedBy) {
		return nil, fmt.Errorf("%w: %s", ErrNotDictionaryCommit, shortHash(commit))
	}
	if commit.NumParents() == 0 {
		return nil, fmt.Errorf("cannot undo %s: it is the initial commit", shortHash(commit))
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("getting parent commit: %w", err)
	}

	paths, err := changedPaths(parent, commit)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, r.cfg.Dir+"/") {
			return nil, fmt.Errorf("%w: %s", ErrForeignChange, p)
		}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: parent.Hash, Mode: gogit.SoftReset}); err != nil {
		return nil, fmt.Errorf("resetting to %s: %w", shortHash(parent), err)
	}
	return &Undone{Commit: commit.Hash.String(), Paths: paths}, nil
}

// changedPaths lists the paths that differ between parent and commit.
func changedPaths(parent, commit *object.Commit) ([]string, error) {
	from, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", shortHash(parent), err)
	}
	to, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", shortHash(commit), err)
	}
	changes, err := object.DiffTree(from, to)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", shortHash(commit), err)
	}

	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths, nil
}

func shortHash(c *object.Commit) string {
	return c.Hash.String()[:7]
}

// isFileDirty reports whether rel has staged or unstaged changes.
func (r *Repo) isFileDirty(rel string) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}
	fs, ok := status[rel]
	if !ok {
		return false, nil
	}
	if fs.Worktree == gogit.Untracked {
		return true, nil
	}
	return fs.Staging != gogit.Unmodified || fs.Worktree != gogit.Unmodified, nil
}
