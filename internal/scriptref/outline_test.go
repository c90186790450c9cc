// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package scriptref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctions_Declarations(t *testing.T) {
	src := []byte(`
function onLoad(executionContext) {
    var form = executionContext.getFormContext();
    form.getAttribute("new_score").addOnChange(onScoreChange);
}

function onScoreChange(executionContext) {
    return 1;
}

class Validator {
    validate(value) { return value > 0; }
}
`)

	names := Functions(context.Background(), src)
	assert.Contains(t, names, "onLoad")
	assert.Contains(t, names, "onScoreChange")
	assert.Contains(t, names, "validate")
	assert.NotContains(t, names, "form")
}

func TestFunctions_ArrowFunctionVariable(t *testing.T) {
	names := Functions(context.Background(), []byte("const recalc = (ctx) => ctx.total;\n"))
	assert.Equal(t, []string{"recalc"}, names)
}

func TestFunctions_SourceOrderWithoutDuplicates(t *testing.T) {
	src := []byte(`
function b() {}
function a() {}
function b() {}
`)
	assert.Equal(t, []string{"b", "a"}, Functions(context.Background(), src))
}

func TestFunctions_NoFunctions(t *testing.T) {
	assert.Empty(t, Functions(context.Background(), []byte("var x = 1;\n")))
}
