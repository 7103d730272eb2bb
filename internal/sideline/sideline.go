// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package sideline implements the SidelineController: start/stop
// lifecycle for runtime filter-based diversion of a firehose subset,
// persistence of the resulting payload, and replay-consumer spawn,
// including recovery on open.
package sideline

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/filter"
	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

// Request is an immutable ordered list of filter steps. It carries no
// identifier of its own: Stop locates the active request by re-finding
// the label under which its steps were registered on the firehose's
// FilterChain.
type Request struct {
	Steps []filter.Step
}

// predicateDTO is the JSON-serializable shape of a filter.Predicate,
// the only Step kind this package knows how to persist. Opaque,
// closure-carrying Steps supplied by a caller cannot survive a
// restart; this is a property of the filter-language non-goal
// (spec.md §1), not an oversight here.
type predicateDTO struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// encodeSteps serializes steps for persistence. decodeSteps' evalFor
// resolves a persisted predicate's Expr back into an evaluatable
// function at recovery time, since Eval closures themselves cannot be
// persisted.
func encodeSteps(steps []filter.Step) ([]byte, error) {
	dtos := make([]predicateDTO, 0, len(steps))
	for _, s := range steps {
		p, ok := s.(filter.Predicate)
		if !ok {
			return nil, errors.New("sideline request steps must be filter.Predicate to be persisted")
		}
		dtos = append(dtos, predicateDTO{Name: p.Name, Expr: p.Expr})
	}
	return json.Marshal(dtos)
}

func decodeSteps(data []byte, evalFor func(name, expr string) func(model.Message) bool) ([]filter.Step, error) {
	var dtos []predicateDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, errors.Wrap(err, "failed to decode sideline request steps")
	}
	steps := make([]filter.Step, 0, len(dtos))
	for _, d := range dtos {
		steps = append(steps, filter.Predicate{Name: d.Name, Expr: d.Expr, Eval: evalFor(d.Name, d.Expr)})
	}
	return steps, nil
}

// Firehose is the subset of consumer.VirtualConsumer the controller
// needs: its filter chain and its committed state snapshot.
type Firehose interface {
	FilterChain() *filter.Chain
	GetCurrentState() model.ConsumerState
}

// ReplaySpawner constructs and submits a bounded replay VirtualConsumer
// for a stopped sideline request. Kept as a narrow function type rather
// than importing the coordinator/consumer packages directly, breaking
// the cyclic reference spec.md §9 flags between the controller and its
// collaborators.
type ReplaySpawner func(req ReplayRequest)

// ReplayRequest describes the bounded consumer SidelineController
// wants spawned for one stopped (or recovered) sideline request.
type ReplayRequest struct {
	SidelineRequestID string
	StartingState     model.ConsumerState
	EndingState       model.ConsumerState
	NegatedSteps      []filter.Step
}

// EvalResolver turns a persisted predicate name/expr pair back into an
// evaluatable function, since closures cannot be persisted. Callers
// that only ever sideline in-process (no restart) can ignore recovery
// and ground every Request's steps in already-evaluatable Predicates.
type EvalResolver func(name, expr string) func(model.Message) bool

// Controller implements spec.md §4.7.
type Controller struct {
	firehose       Firehose
	store          persistence.Adapter
	spawn          ReplaySpawner
	resolve        EvalResolver
	replayConsumer func(sidelineRequestID string) string
	log            logrus.FieldLogger

	mu              sync.Mutex
	recoveredReplay map[string]bool // sideline request ids already re-spawned by RecoverOnOpen
}

// NewController wires a SidelineController. replayConsumerID derives
// the virtual consumer id a replay consumer for a given sideline
// request would be assigned — it must match whatever id the spawn
// callback actually constructs, so recovery can look up that
// consumer's own persisted commit state.
func NewController(firehose Firehose, store persistence.Adapter, spawn ReplaySpawner, resolve EvalResolver, replayConsumerID func(string) string, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		firehose:        firehose,
		store:           store,
		spawn:           spawn,
		resolve:         resolve,
		replayConsumer:  replayConsumerID,
		log:             log,
		recoveredReplay: make(map[string]bool),
	}
}

// Start generates a fresh id, snapshots the firehose's current state
// as the starting state, persists a START payload, and attaches the
// request's steps to the firehose's filter chain under that id.
func (c *Controller) Start(req Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	startingState := c.firehose.GetCurrentState()

	encoded, err := encodeSteps(req.Steps)
	if err != nil {
		return "", err
	}
	payload := persistence.SidelinePayload{
		ID:            id,
		Type:          persistence.SidelineTypeStart,
		RequestSteps:  encoded,
		Negated:       false,
		StartingState: startingState,
	}
	if err := c.store.PersistSidelineRequest(payload); err != nil {
		return "", errors.Wrap(err, "failed to persist sideline START payload")
	}

	c.firehose.FilterChain().AddSteps(id, req.Steps)
	return id, nil
}

// Stop locates the request by its step list's identity, snapshots the
// firehose's current state as the ending state, removes the steps from
// the firehose, persists a STOP payload that keeps the original steps
// and sets Negated (SPEC_FULL.md §3 — negation is stored explicitly
// rather than re-derived at recovery), and spawns a replay consumer.
func (c *Controller) Stop(req Request) error {
	chain := c.firehose.FilterChain()
	id, ok := chain.FindLabel(req.Steps)
	if !ok {
		c.log.Warn("stop requested for a sideline request with no matching active filter; ignoring")
		return nil
	}
	return c.StopByID(id)
}

// StopByID stops a sideline request already known by its id — the
// identifier handed back from Start, and the form the admin HTTP
// surface's POST /sidelines/{id}/stop naturally carries, rather than
// requiring the caller to resubmit the original predicate steps.
func (c *Controller) StopByID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chain := c.firehose.FilterChain()
	existing, found, err := c.store.RetrieveSidelineRequest(id)
	if err != nil {
		return errors.Wrap(err, "failed to load sideline START payload")
	}
	if !found {
		return errors.Errorf("no persisted START payload for sideline request %s", id)
	}

	endingState := c.firehose.GetCurrentState()
	removed := chain.RemoveSteps(id)
	negatedSteps := filter.NegateSteps(removed)

	encoded, err := encodeSteps(removed)
	if err != nil {
		return err
	}
	payload := persistence.SidelinePayload{
		ID:             id,
		Type:           persistence.SidelineTypeStop,
		RequestSteps:   encoded,
		Negated:        true,
		StartingState:  existing.StartingState,
		HasEndingState: true,
		EndingState:    endingState,
	}
	if err := c.store.PersistSidelineRequest(payload); err != nil {
		return errors.Wrap(err, "failed to persist sideline STOP payload")
	}

	c.spawn(ReplayRequest{
		SidelineRequestID: id,
		StartingState:     existing.StartingState,
		EndingState:       endingState,
		NegatedSteps:      negatedSteps,
	})
	return nil
}

// RecoverOnOpen re-attaches every persisted START's steps to the
// firehose, and re-spawns a replay consumer for every persisted STOP.
// Idempotent: re-running it yields the same live state, since AddSteps
// upserts by label and the recoveredReplay set keeps this controller
// from spawning a second replay consumer for the same STOP.
func (c *Controller) RecoverOnOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.store.ListSidelineRequests()
	if err != nil {
		return errors.Wrap(err, "failed to list sideline requests for recovery")
	}

	for _, id := range ids {
		payload, found, err := c.store.RetrieveSidelineRequest(id)
		if err != nil {
			return errors.Wrapf(err, "failed to load sideline payload %s", id)
		}
		if !found {
			continue
		}

		steps, err := decodeSteps(payload.RequestSteps, c.resolve)
		if err != nil {
			return errors.Wrapf(err, "failed to decode sideline payload %s", id)
		}

		switch payload.Type {
		case persistence.SidelineTypeStart:
			c.firehose.FilterChain().AddSteps(id, steps)
		case persistence.SidelineTypeStop:
			if c.recoveredReplay[id] {
				continue // already live from a previous RecoverOnOpen on this controller
			}
			startingState := payload.StartingState
			if resumed, ok, err := c.store.RetrieveConsumerState(c.replayConsumer(id)); err == nil && ok && !resumed.IsEmpty() {
				startingState = resumed
			}
			// RequestSteps always stores the original, non-negated
			// predicate list; Negated records whether this payload's
			// replay consumer must run the logical inverse of it. The
			// flag is authoritative — recovery never re-derives
			// negation from Type, precisely to avoid the double/zero
			// negation hazard SPEC_FULL.md §3 flags.
			negated := steps
			if payload.Negated {
				negated = filter.NegateSteps(steps)
			}
			c.spawn(ReplayRequest{
				SidelineRequestID: id,
				StartingState:     startingState,
				EndingState:       payload.EndingState,
				NegatedSteps:      negated,
			})
			c.recoveredReplay[id] = true
		}
	}
	return nil
}
