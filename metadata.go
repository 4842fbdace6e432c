// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gamearchive

// NewEnumAttribute builds an archive-level enum attribute (e.g. RFF's
// version field or WAD's IWAD/PWAD type) with the given initial value.
func NewEnumAttribute(name, description string, allowed []string, value string) *Attribute {
	return &Attribute{Kind: AttrKindEnum, Name: name, Description: description, AllowedValues: allowed, Value: value}
}

// NewTextAttribute builds an archive-level free text attribute (e.g. EPF's
// Description field).
func NewTextAttribute(name, description, value string) *Attribute {
	return &Attribute{Kind: AttrKindText, Name: name, Description: description, Value: value}
}

// NewIntegerAttribute builds an archive-level integer attribute, stored as
// its decimal string form for Attribute.Value's uniform representation.
func NewIntegerAttribute(name, description, value string) *Attribute {
	return &Attribute{Kind: AttrKindInteger, Name: name, Description: description, Value: value}
}
