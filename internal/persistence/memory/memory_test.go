// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

func TestConsumerStateRoundTrip(t *testing.T) {
	a := New()
	_, ok, err := a.RetrieveConsumerState("vc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	state := model.NewConsumerStateBuilder().WithOffset("T", 0, 100).Build()
	require.NoError(t, a.PersistConsumerState("vc-1", state))

	got, ok, err := a.RetrieveConsumerState("vc-1")
	require.NoError(t, err)
	require.True(t, ok)
	off, ok := got.Get(model.PartitionKey{Topic: "T", Partition: 0})
	require.True(t, ok)
	assert.Equal(t, int64(100), off)

	require.NoError(t, a.ClearConsumerState("vc-1"))
	_, ok, err = a.RetrieveConsumerState("vc-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSidelineRequestRoundTrip(t *testing.T) {
	a := New()
	ids, err := a.ListSidelineRequests()
	require.NoError(t, err)
	assert.Empty(t, ids)

	payload := persistence.SidelinePayload{
		ID:            "r1",
		Type:          persistence.SidelineTypeStart,
		RequestSteps:  []byte("steps"),
		StartingState: model.NewConsumerStateBuilder().WithOffset("T", 0, 100).Build(),
	}
	require.NoError(t, a.PersistSidelineRequest(payload))

	ids, err = a.ListSidelineRequests()
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)

	got, ok, err := a.RetrieveSidelineRequest("r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload.Type, got.Type)
	assert.False(t, got.HasEndingState)

	require.NoError(t, a.ClearSidelineRequest("r1"))
	ids, err = a.ListSidelineRequests()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
