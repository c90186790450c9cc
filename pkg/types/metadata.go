// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ComponentType is the platform's solution component type code.
type ComponentType int

// Values are fixed by the platform's component-type registry.
const (
	ComponentEntity      ComponentType = 1
	ComponentAttribute   ComponentType = 2
	ComponentWebResource ComponentType = 61
)

func (c ComponentType) String() string {
	switch c {
	case ComponentEntity:
		return "entity"
	case ComponentAttribute:
		return "attribute"
	case ComponentWebResource:
		return "webresource"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// WebResourceType is the platform's web resource type code.
type WebResourceType int

const (
	WebResourceHTML   WebResourceType = 1
	WebResourceCSS    WebResourceType = 2
	WebResourceScript WebResourceType = 3
	WebResourceXML    WebResourceType = 4
)

// RequiredLevel is the platform's attribute requirement level.
type RequiredLevel int

const (
	RequiredNone        RequiredLevel = iota // No requirement
	RequiredSystem                           // Enforced by the platform
	RequiredApplication                      // Business required
	RequiredRecommended                      // Business recommended
)

func (l RequiredLevel) String() string {
	switch l {
	case RequiredNone:
		return "None"
	case RequiredSystem:
		return "SystemRequired"
	case RequiredApplication:
		return "ApplicationRequired"
	case RequiredRecommended:
		return "Recommended"
	default:
		return "Unknown"
	}
}

// ParseRequiredLevel converts the platform's textual level. An empty string
// maps to RequiredNone.
func ParseRequiredLevel(s string) (RequiredLevel, error) {
	switch s {
	case "", "None":
		return RequiredNone, nil
	case "SystemRequired":
		return RequiredSystem, nil
	case "ApplicationRequired":
		return RequiredApplication, nil
	case "Recommended":
		return RequiredRecommended, nil
	default:
		return RequiredNone, fmt.Errorf("unknown required level %q", s)
	}
}

func (l RequiredLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *RequiredLevel) UnmarshalText(b []byte) error {
	v, err := ParseRequiredLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// EntityMetadata holds an entity definition and its attributes in the
// provider's native order.
type EntityMetadata struct {
	ID           uuid.UUID           `json:"id"`
	LogicalName  string              `json:"logicalName"`
	DisplayLabel string              `json:"displayLabel,omitempty"` // Localized label; empty when absent
	Attributes   []AttributeMetadata `json:"attributes"`
}

// AttributeMetadata describes one attribute of an entity.
type AttributeMetadata struct {
	LogicalName   string        `json:"logicalName"`
	DisplayLabel  string        `json:"displayLabel,omitempty"`
	TypeName      string        `json:"typeName,omitempty"` // e.g. "StringType"
	TypeCode      string        `json:"typeCode,omitempty"` // e.g. "String"
	IsCustom      bool          `json:"isCustom"`
	RequiredLevel RequiredLevel `json:"requiredLevel"`
	Description   string        `json:"description,omitempty"`
}

// WebResource is a stored web resource as returned by the platform.
// Content is base64-encoded.
type WebResource struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName,omitempty"`
	Type        WebResourceType `json:"type"`
	Content     string          `json:"content,omitempty"`
}
