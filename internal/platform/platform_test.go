// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", MimeType("Sales_DataDictionary.docx"))
	assert.Equal(t, "text/markdown", MimeType("Sales_DataDictionary.MD"))
	assert.Equal(t, "application/octet-stream", MimeType("dictionary"))
}
