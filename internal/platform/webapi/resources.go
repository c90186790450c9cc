// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package webapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ljrain/DataverseDataDictionary/internal/platform"
	"github.com/ljrain/DataverseDataDictionary/pkg/types"
)

// label mirrors the Label complex type; only the user's localized label is
// read.
type label struct {
	UserLocalizedLabel *struct {
		Label string `json:"Label"`
	} `json:"UserLocalizedLabel"`
}

func (l *label) text() string {
	if l == nil || l.UserLocalizedLabel == nil {
		return ""
	}
	return l.UserLocalizedLabel.Label
}

type entityDefinition struct {
	MetadataID  uuid.UUID             `json:"MetadataId"`
	LogicalName string                `json:"LogicalName"`
	DisplayName *label                `json:"DisplayName"`
	Attributes  []attributeDefinition `json:"Attributes"`
}

type attributeDefinition struct {
	LogicalName       string `json:"LogicalName"`
	DisplayName       *label `json:"DisplayName"`
	Description       *label `json:"Description"`
	AttributeType     string `json:"AttributeType"`
	AttributeTypeName *struct {
		Value string `json:"Value"`
	} `json:"AttributeTypeName"`
	IsCustomAttribute *bool `json:"IsCustomAttribute"`
	RequiredLevel     *struct {
		Value string `json:"Value"`
	} `json:"RequiredLevel"`
}

type webResourceRecord struct {
	ID              uuid.UUID `json:"webresourceid"`
	Name            string    `json:"name"`
	DisplayName     string    `json:"displayname"`
	WebResourceType int       `json:"webresourcetype"`
	Content         string    `json:"content"`
}

// ResolveSolution looks up a solution by unique name.
func (c *Client) ResolveSolution(ctx context.Context, uniqueName string) (uuid.UUID, error) {
	var page struct {
		Value []struct {
			SolutionID uuid.UUID `json:"solutionid"`
		} `json:"value"`
	}
	ref := query("solutions",
		"$select", "solutionid",
		"$filter", "uniquename eq "+quote(uniqueName))
	if err := c.getJSON(ctx, ref, &page); err != nil {
		return uuid.Nil, err
	}
	if len(page.Value) == 0 || page.Value[0].SolutionID == uuid.Nil {
		return uuid.Nil, platform.ErrSolutionNotFound
	}
	return page.Value[0].SolutionID, nil
}

// ListComponentIDs returns the object IDs of the solution's components of
// the given type, following server-driven paging. The server orders by
// objectid (uniqueidentifier collation) and that order is kept as returned.
func (c *Client) ListComponentIDs(ctx context.Context, solutionID uuid.UUID, componentType types.ComponentType) ([]uuid.UUID, error) {
	ref := query("solutioncomponents",
		"$select", "objectid",
		"$filter", fmt.Sprintf("_solutionid_value eq %s and componenttype eq %s", solutionID, strconv.Itoa(int(componentType))),
		"$orderby", "objectid asc")

	var ids []uuid.UUID
	for ref != "" {
		var page struct {
			Value []struct {
				ObjectID uuid.UUID `json:"objectid"`
			} `json:"value"`
			NextLink string `json:"@odata.nextLink"`
		}
		if err := c.getJSON(ctx, ref, &page); err != nil {
			return nil, err
		}
		for _, v := range page.Value {
			ids = append(ids, v.ObjectID)
		}
		ref = page.NextLink
	}

	c.log.Debug("listed solution components",
		zap.Stringer("solutionId", solutionID),
		zap.Stringer("componentType", componentType),
		zap.Int("count", len(ids)))
	return ids, nil
}

// FetchEntityMetadata retrieves an entity definition with its attributes.
func (c *Client) FetchEntityMetadata(ctx context.Context, entityID uuid.UUID) (*types.EntityMetadata, error) {
	ref := query(fmt.Sprintf("EntityDefinitions(%s)", entityID),
		"$select", "MetadataId,LogicalName,DisplayName",
		"$expand", "Attributes($select=LogicalName,DisplayName,Description,AttributeType,AttributeTypeName,IsCustomAttribute,RequiredLevel)")

	var def entityDefinition
	if err := c.getJSON(ctx, ref, &def); err != nil {
		return nil, err
	}

	meta := &types.EntityMetadata{
		ID:           def.MetadataID,
		LogicalName:  def.LogicalName,
		DisplayLabel: def.DisplayName.text(),
		Attributes:   make([]types.AttributeMetadata, 0, len(def.Attributes)),
	}
	if meta.ID == uuid.Nil {
		meta.ID = entityID
	}
	for _, a := range def.Attributes {
		meta.Attributes = append(meta.Attributes, c.attribute(def.LogicalName, a))
	}
	return meta, nil
}

func (c *Client) attribute(entity string, a attributeDefinition) types.AttributeMetadata {
	out := types.AttributeMetadata{
		LogicalName:  a.LogicalName,
		DisplayLabel: a.DisplayName.text(),
		Description:  a.Description.text(),
		TypeCode:     a.AttributeType,
		IsCustom:     a.IsCustomAttribute != nil && *a.IsCustomAttribute,
	}
	if a.AttributeTypeName != nil {
		out.TypeName = a.AttributeTypeName.Value
	}
	if a.RequiredLevel != nil {
		level, err := types.ParseRequiredLevel(a.RequiredLevel.Value)
		if err != nil {
			c.log.Debug("unrecognized required level",
				zap.String("entity", entity),
				zap.String("attribute", a.LogicalName),
				zap.Error(err))
		}
		out.RequiredLevel = level
	}
	return out
}

// FetchWebResource retrieves one web resource with its base64 content.
func (c *Client) FetchWebResource(ctx context.Context, id uuid.UUID) (*types.WebResource, error) {
	ref := query(fmt.Sprintf("webresourceset(%s)", id),
		"$select", "webresourceid,name,displayname,webresourcetype,content")

	var rec webResourceRecord
	if err := c.getJSON(ctx, ref, &rec); err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = id
	}
	return &types.WebResource{
		ID:          rec.ID,
		Name:        rec.Name,
		DisplayName: rec.DisplayName,
		Type:        types.WebResourceType(rec.WebResourceType),
		Content:     rec.Content,
	}, nil
}

var entityIDPattern = regexp.MustCompile(`\(([0-9a-fA-F-]{36})\)\s*$`)

// PersistDocument stores doc as a note attachment and returns its ID.
func (c *Client) PersistDocument(ctx context.Context, doc []byte, fileName, subject string) (uuid.UUID, error) {
	body, err := json.Marshal(map[string]string{
		"subject":      subject,
		"filename":     fileName,
		"mimetype":     platform.MimeType(fileName),
		"documentbody": base64.StdEncoding.EncodeToString(doc),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: encoding annotation: %v", ErrRequestFailed, err)
	}

	header := http.Header{"Prefer": []string{"return=representation"}}
	resp, err := c.do(ctx, http.MethodPost, "annotations", body, header)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	var created struct {
		AnnotationID uuid.UUID `json:"annotationid"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&created)
	if decodeErr == nil && created.AnnotationID != uuid.Nil {
		return created.AnnotationID, nil
	}

	// Without return=representation the ID only appears in OData-EntityId.
	if m := entityIDPattern.FindStringSubmatch(resp.Header.Get("OData-EntityId")); m != nil {
		return uuid.Parse(m[1])
	}
	if decodeErr == nil {
		decodeErr = errors.New("no annotation id in response")
	}
	return uuid.Nil, fmt.Errorf("%w: creating annotation: %v", ErrRequestFailed, decodeErr)
}

var _ platform.Client = (*Client)(nil)
