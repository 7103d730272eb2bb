// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package persistence implements the key-value-store-on-a-coordination-
// service boundary named in spec.md §6: committed offsets per virtual
// consumer, and sideline request payloads, under a configured root.
package persistence

import "github.com/dynamicspout/spout/internal/model"

// SidelineType distinguishes a still-active diversion from one that
// has already been stopped and handed to a replay consumer.
type SidelineType string

const (
	SidelineTypeStart SidelineType = "START"
	SidelineTypeStop  SidelineType = "STOP"
)

// SidelinePayload is the persisted record for one sideline request,
// stored at /sideline/<requestId>. RequestSteps always holds the
// original, non-negated predicate list as an opaque blob owned and
// decoded by the sideline package — persistence never inspects filter
// predicates. Negated is the canonical, explicit record of whether
// this payload's live filter (START) or replay consumer (STOP) must
// run the logical inverse of RequestSteps, so recovery never has to
// re-derive inversion from Type — see SPEC_FULL.md §3.
type SidelinePayload struct {
	ID             string
	Type           SidelineType
	RequestSteps   []byte
	Negated        bool
	StartingState  model.ConsumerState
	HasEndingState bool
	EndingState    model.ConsumerState
}

// Adapter is the persistence back-end boundary spec.md §6 assumes:
// a key-value store over a coordination service, abstracted behind
// the logical layout described there.
type Adapter interface {
	Open() error
	Close() error

	PersistConsumerState(virtualConsumerID string, state model.ConsumerState) error
	RetrieveConsumerState(virtualConsumerID string) (model.ConsumerState, bool, error)
	ClearConsumerState(virtualConsumerID string) error

	PersistSidelineRequest(payload SidelinePayload) error
	RetrieveSidelineRequest(id string) (SidelinePayload, bool, error)
	ListSidelineRequests() ([]string, error)
	ClearSidelineRequest(id string) error
}
