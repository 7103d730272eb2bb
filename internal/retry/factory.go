// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package retry

import "github.com/dynamicspout/spout/internal/spouterrors"

// Variant is the closed set of RetryManager implementations selectable
// from configuration, replacing the source's dynamic-class construction
// with an enum-dispatched factory (spec.md §9).
type Variant string

const (
	VariantNeverRetry          Variant = "NeverRetry"
	VariantFailedTuplesFirst   Variant = "FailedTuplesFirst"
	VariantExponentialBackoff  Variant = "ExponentialBackoff"
)

// New constructs the Manager named by variant. ebCfg is only consulted
// for VariantExponentialBackoff.
func New(variant Variant, ebCfg ExponentialBackoffConfig) (Manager, error) {
	switch variant {
	case VariantNeverRetry:
		return NewNeverRetry(), nil
	case VariantFailedTuplesFirst:
		return NewFailedTuplesFirst(), nil
	case VariantExponentialBackoff:
		return NewExponentialBackoff(ebCfg), nil
	default:
		return nil, spouterrors.ConfigMissing("retryManagerClass: unknown variant " + string(variant))
	}
}
