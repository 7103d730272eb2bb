// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package deserializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_Valid(t *testing.T) {
	fields, err := JSON{}.Deserialize(nil, []byte(`["a", 1, true]`))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", float64(1), true}, fields)
}

func TestJSON_Unparseable(t *testing.T) {
	fields, err := JSON{}.Deserialize(nil, []byte(`not json`))
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestRaw(t *testing.T) {
	fields, err := Raw{}.Deserialize(nil, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{[]byte("hello")}, fields)
}

func TestNew_UnknownVariant(t *testing.T) {
	_, err := New("bogus")
	require.Error(t, err)
}
