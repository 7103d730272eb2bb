// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/model"
)

func msg(offset int64) model.Message {
	return model.Message{ID: model.MessageId{Topic: "T", Partition: 0, Offset: offset}}
}

func TestFIFO_OrderPreserved(t *testing.T) {
	f := NewFIFO(4)
	f.Put("p1", msg(1))
	f.Put("p2", msg(2))
	f.Put("p1", msg(3))

	m1, ok := f.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(1), m1.ID.Offset)

	m2, ok := f.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(2), m2.ID.Offset)

	m3, ok := f.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(3), m3.ID.Offset)

	_, ok = f.Poll()
	assert.False(t, ok)
}

// With cursor advancing by one each call, p2's single message must be
// served before p1's second message, even though it arrived later —
// a FIFO buffer would starve p2 until p1's queue drained.
func TestRoundRobin_FairAcrossProducers(t *testing.T) {
	r := NewRoundRobin(4)
	r.Put("p1", msg(1))
	r.Put("p1", msg(2))
	r.Put("p2", msg(10))

	m1, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(1), m1.ID.Offset)

	m2, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(10), m2.ID.Offset)

	m3, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, int64(2), m3.ID.Offset)

	_, ok = r.Poll()
	assert.False(t, ok)
}

func TestRoundRobin_EmptyPollReturnsFalse(t *testing.T) {
	r := NewRoundRobin(4)
	_, ok := r.Poll()
	assert.False(t, ok)
}

func TestNew_UnknownVariant(t *testing.T) {
	_, err := New("bogus", 4)
	require.Error(t, err)
}

func TestNew_NonPositiveCapacity(t *testing.T) {
	_, err := New(VariantFIFO, 0)
	require.Error(t, err)
}
