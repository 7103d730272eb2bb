// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package memory implements an in-process persistence.Adapter backed
// by plain maps, used by tests and by single-process deployments that
// don't need durability across restarts.
package memory

import (
	"sort"
	"sync"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

// Adapter is a map-backed persistence.Adapter. Safe for concurrent use.
type Adapter struct {
	mu        sync.Mutex
	consumers map[string]model.ConsumerState
	sidelines map[string]persistence.SidelinePayload
}

func New() *Adapter {
	return &Adapter{
		consumers: make(map[string]model.ConsumerState),
		sidelines: make(map[string]persistence.SidelinePayload),
	}
}

func (a *Adapter) Open() error  { return nil }
func (a *Adapter) Close() error { return nil }

func (a *Adapter) PersistConsumerState(virtualConsumerID string, state model.ConsumerState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consumers[virtualConsumerID] = state
	return nil
}

func (a *Adapter) RetrieveConsumerState(virtualConsumerID string) (model.ConsumerState, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.consumers[virtualConsumerID]
	return state, ok, nil
}

func (a *Adapter) ClearConsumerState(virtualConsumerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.consumers, virtualConsumerID)
	return nil
}

func (a *Adapter) PersistSidelineRequest(payload persistence.SidelinePayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sidelines[payload.ID] = payload
	return nil
}

func (a *Adapter) RetrieveSidelineRequest(id string) (persistence.SidelinePayload, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.sidelines[id]
	return p, ok, nil
}

func (a *Adapter) ListSidelineRequests() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.sidelines))
	for id := range a.sidelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (a *Adapter) ClearSidelineRequest(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sidelines, id)
	return nil
}
