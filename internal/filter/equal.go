// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package filter

import "reflect"

// reflectStepEqual is the fallback equality used for Steps that don't
// implement Equatable themselves.
func reflectStepEqual(a, b Step) bool {
	return reflect.DeepEqual(a, b)
}
