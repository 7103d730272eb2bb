// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dynamicspout/spout/internal/model"
)

func TestEqualsPredicate(t *testing.T) {
	match := equalsPredicate("region", "us-east-1")

	assert.True(t, match(model.Message{Values: []interface{}{"us-east-1", 42}}))
	assert.False(t, match(model.Message{Values: []interface{}{"eu-west-1"}}))
	assert.False(t, match(model.Message{Values: nil}))
}
