// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package zk

import (
	"testing"

	"github.com/samuel/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

// fakeClient mirrors the mock.Mock-over-a-narrow-interface shape the
// teacher uses for its zookeeper config provider tests, but every
// wrapper method here except Delete takes exactly two .Return() values
// (result, error), and Delete takes one (error), so call sites stay
// readable.
type fakeClient struct {
	mock.Mock
}

func (m *fakeClient) Get(p string) ([]byte, *zk.Stat, error) {
	args := m.Called(p)
	data, _ := args.Get(0).([]byte)
	return data, nil, args.Error(1)
}

func (m *fakeClient) Children(p string) ([]string, *zk.Stat, error) {
	args := m.Called(p)
	children, _ := args.Get(0).([]string)
	return children, nil, args.Error(1)
}

func (m *fakeClient) Exists(p string) (bool, *zk.Stat, error) {
	args := m.Called(p)
	return args.Bool(0), nil, args.Error(1)
}

func (m *fakeClient) Create(p string, data []byte, flags int32, acl []zk.ACL) (string, error) {
	args := m.Called(p, data, flags, acl)
	return args.String(0), args.Error(1)
}

func (m *fakeClient) Set(p string, data []byte, version int32) (*zk.Stat, error) {
	args := m.Called(p, data, version)
	return nil, args.Error(1)
}

func (m *fakeClient) Delete(p string, version int32) error {
	args := m.Called(p, version)
	return args.Error(0)
}

func (m *fakeClient) Close() {}

func TestPersistConsumerState(t *testing.T) {
	fc := &fakeClient{}
	a := NewWithClient(fc, "/spout")

	state := model.NewConsumerStateBuilder().WithOffset("T", 0, 100).Build()

	fc.On("Exists", "/spout/consumers").Return(false, nil).Times(1)
	fc.On("Create", "/spout/consumers", mock.Anything, int32(0), mock.Anything).Return("/spout/consumers", nil).Times(1)
	fc.On("Exists", "/spout/consumers/vc-1").Return(false, nil).Times(1)
	fc.On("Create", "/spout/consumers/vc-1", mock.Anything, int32(0), mock.Anything).Return("/spout/consumers/vc-1", nil).Times(1)
	fc.On("Exists", "/spout/consumers/vc-1/0").Return(false, nil).Times(1)
	fc.On("Create", "/spout/consumers/vc-1/0", []byte("100"), int32(0), mock.Anything).Return("/spout/consumers/vc-1/0", nil).Times(1)

	require.NoError(t, a.PersistConsumerState("vc-1", state))
	fc.AssertExpectations(t)
}

func TestClearConsumerState_NoExistingNodes(t *testing.T) {
	fc := &fakeClient{}
	a := NewWithClient(fc, "/spout")

	fc.On("Children", "/spout/consumers/vc-1").Return(nil, assertErr).Times(1)
	require.NoError(t, a.ClearConsumerState("vc-1"))
}

var assertErr = assertError("no node")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestSidelineRequestRoundTrip(t *testing.T) {
	fc := &fakeClient{}
	a := NewWithClient(fc, "/spout")

	payload := persistence.SidelinePayload{
		ID:            "r1",
		Type:          persistence.SidelineTypeStop,
		RequestSteps:  []byte("steps"),
		Negated:       true,
		StartingState: model.NewConsumerStateBuilder().WithOffset("T", 0, 100).Build(),
	}

	fc.On("Exists", "/spout/sideline").Return(false, nil).Times(1)
	fc.On("Create", "/spout/sideline", mock.Anything, int32(0), mock.Anything).Return("/spout/sideline", nil).Times(1)
	fc.On("Exists", "/spout/sideline/r1").Return(false, nil).Times(1)
	fc.On("Create", "/spout/sideline/r1", mock.Anything, int32(0), mock.Anything).Return("/spout/sideline/r1", nil).Times(1)

	require.NoError(t, a.PersistSidelineRequest(payload))
	fc.AssertExpectations(t)

	var captured []byte
	for _, call := range fc.Calls {
		if call.Method == "Create" && call.Arguments.String(0) == "/spout/sideline/r1" {
			captured = call.Arguments.Get(1).([]byte)
		}
	}
	require.NotNil(t, captured)

	fc.On("Exists", "/spout/sideline/r1").Return(true, nil).Times(1)
	fc.On("Get", "/spout/sideline/r1").Return(captured, nil).Times(1)

	got, ok, err := a.RetrieveSidelineRequest("r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload.Negated, got.Negated)
	assert.Equal(t, payload.Type, got.Type)
	assert.False(t, got.HasEndingState)
}
