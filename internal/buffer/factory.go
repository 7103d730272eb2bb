// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package buffer

import "github.com/dynamicspout/spout/internal/spouterrors"

// New constructs the MessageBuffer named by variant with the given
// per-queue capacity.
func New(variant Variant, capacity int) (Buffer, error) {
	if capacity <= 0 {
		return nil, spouterrors.ConfigMissing("messageBuffer.capacity must be positive")
	}
	switch variant {
	case VariantFIFO:
		return NewFIFO(capacity), nil
	case VariantRoundRobin:
		return NewRoundRobin(capacity), nil
	default:
		return nil, spouterrors.ConfigMissing("messageBufferClass: unknown variant " + string(variant))
	}
}
