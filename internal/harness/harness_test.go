// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/spouterrors"
)

type fakeCoordinator struct {
	queue  []model.Message
	acked  []model.MessageId
	failed []model.MessageId
}

func (f *fakeCoordinator) NextMessage() (*model.Message, bool) {
	if len(f.queue) == 0 {
		return nil, false
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return &msg, true
}

func (f *fakeCoordinator) Ack(id model.MessageId) error  { f.acked = append(f.acked, id); return nil }
func (f *fakeCoordinator) Fail(id model.MessageId) error { f.failed = append(f.failed, id); return nil }

type fakeEmitter struct {
	emitted []struct {
		stream string
		values []interface{}
		id     interface{}
	}
}

func (e *fakeEmitter) Emit(streamID string, values []interface{}, opaqueID interface{}) {
	e.emitted = append(e.emitted, struct {
		stream string
		values []interface{}
		id     interface{}
	}{streamID, values, opaqueID})
}

type fakeDeclarer struct {
	streamID string
	fields   []string
}

func (d *fakeDeclarer) DeclareStream(streamID string, fields []string) {
	d.streamID = streamID
	d.fields = fields
}

func TestSpout_NextTupleAcksWithAcceptAll(t *testing.T) {
	id := model.MessageId{Topic: "orders", Partition: 0, Offset: 1, SourceVirtualConsumerID: "vc-1"}
	coord := &fakeCoordinator{queue: []model.Message{{ID: id, Values: []interface{}{"payload"}}}}
	s := New(Config{Coordinator: coord, OutputStream: "default"})
	require.NoError(t, s.Open())

	emitter := &fakeEmitter{}
	s.NextTuple(emitter)

	require.Len(t, emitter.emitted, 1)
	assert.Equal(t, "default", emitter.emitted[0].stream)
	assert.Equal(t, id, emitter.emitted[0].id)
	require.Len(t, coord.acked, 1)
	assert.Empty(t, coord.failed)
}

func TestSpout_NextTupleFailsViaFailFraction(t *testing.T) {
	id1 := model.MessageId{Topic: "orders", Partition: 0, Offset: 1, SourceVirtualConsumerID: "vc-1"}
	id2 := model.MessageId{Topic: "orders", Partition: 0, Offset: 2, SourceVirtualConsumerID: "vc-1"}
	coord := &fakeCoordinator{queue: []model.Message{{ID: id1}, {ID: id2}}}
	s := New(Config{Coordinator: coord, OutputStream: "default", Sink: &FailFraction{N: 2}})
	require.NoError(t, s.Open())

	emitter := &fakeEmitter{}
	s.NextTuple(emitter)
	s.NextTuple(emitter)

	assert.Len(t, coord.failed, 1)
	assert.Len(t, coord.acked, 1)
}

func TestSpout_NextTupleNoopWhenEmpty(t *testing.T) {
	coord := &fakeCoordinator{}
	s := New(Config{Coordinator: coord, OutputStream: "default"})
	require.NoError(t, s.Open())

	emitter := &fakeEmitter{}
	s.NextTuple(emitter)
	assert.Empty(t, emitter.emitted)
}

func TestSpout_DeactivateStopsPulling(t *testing.T) {
	id := model.MessageId{Topic: "orders", Partition: 0, Offset: 1}
	coord := &fakeCoordinator{queue: []model.Message{{ID: id}}}
	s := New(Config{Coordinator: coord, OutputStream: "default"})
	require.NoError(t, s.Open())
	s.Deactivate()

	emitter := &fakeEmitter{}
	s.NextTuple(emitter)
	assert.Empty(t, emitter.emitted)

	s.Activate()
	s.NextTuple(emitter)
	assert.Len(t, emitter.emitted, 1)
}

func TestSpout_AckWrongOpaqueTypeIsInvalidArgument(t *testing.T) {
	coord := &fakeCoordinator{}
	s := New(Config{Coordinator: coord, OutputStream: "default"})
	require.NoError(t, s.Open())

	err := s.Ack("not-a-message-id")
	require.Error(t, err)
	assert.True(t, spouterrors.Is(err, spouterrors.KindInvalidArgument))

	err = s.Fail(42)
	require.Error(t, err)
	assert.True(t, spouterrors.Is(err, spouterrors.KindInvalidArgument))
}

func TestSpout_DeclareOutputFields(t *testing.T) {
	s := New(Config{Coordinator: &fakeCoordinator{}, OutputStream: "default"})
	d := &fakeDeclarer{}
	s.DeclareOutputFields(d)
	assert.Equal(t, "default", d.streamID)
	assert.Equal(t, OutputFields, d.fields)
}

func TestSpout_OpenTwiceIsIllegalState(t *testing.T) {
	s := New(Config{Coordinator: &fakeCoordinator{}, OutputStream: "default"})
	require.NoError(t, s.Open())
	err := s.Open()
	require.Error(t, err)
	assert.True(t, spouterrors.Is(err, spouterrors.KindIllegalState))
}
