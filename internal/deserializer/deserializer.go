// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package deserializer implements the opaque deserializer plugin
// boundary named in spec.md §1, plus an enum-dispatched registry
// matching the redesign in spec.md §9.
package deserializer

import "github.com/dynamicspout/spout/internal/spouterrors"

// Deserializer turns a raw record value into an ordered field
// sequence. Returning (nil, nil) signals an unparseable record, which
// VirtualConsumer.nextMessage treats as a skip-and-commit.
type Deserializer interface {
	Deserialize(key, value []byte) ([]interface{}, error)
}

// Variant is the closed set of deserializers selectable by name.
type Variant string

const (
	VariantJSON Variant = "JSON"
	VariantRaw  Variant = "Raw"
)

// New constructs the Deserializer named by variant.
func New(variant Variant) (Deserializer, error) {
	switch variant {
	case VariantJSON:
		return JSON{}, nil
	case VariantRaw:
		return Raw{}, nil
	default:
		return nil, spouterrors.ConfigMissing("deserializerClass: unknown variant " + string(variant))
	}
}
