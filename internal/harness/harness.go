// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package harness implements the host-runtime pull contract spec.md
// §6 names: open/nextTuple/ack/fail/declareOutputFields/close/
// activate/deactivate, the boundary a streaming runtime (out of scope
// per spec.md §1) is assumed to drive.
package harness

import (
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/spouterrors"
)

// Coordinator is the subset of coordinator.Coordinator the harness
// needs, narrowed to avoid importing that package's full surface.
type Coordinator interface {
	NextMessage() (*model.Message, bool)
	Ack(id model.MessageId) error
	Fail(id model.MessageId) error
}

// Emitter hands an emitted message's field values and output stream id
// to the host runtime, mirroring a bolt/spout declarer's emit call.
type Emitter interface {
	Emit(streamID string, values []interface{}, opaqueID interface{})
}

// Declarer lets Spout announce its output schema when the host runtime
// calls DeclareOutputFields, mirroring the host runtime's declareOutputFields contract.
type Declarer interface {
	DeclareStream(streamID string, fields []string)
}

// Sink is a pluggable post-emit policy applied before the harness loop
// calls Ack/Fail, used to exercise RetryManager end to end without a
// real downstream consumer: AcceptAll acks everything, FailFraction
// fails a configurable share of messages.
type Sink interface {
	Decide(msg model.Message) bool // true = ack, false = fail
}

// AcceptAll is a Sink that acks every message.
type AcceptAll struct{}

func (AcceptAll) Decide(model.Message) bool { return true }

// FailFraction fails every Nth message (by a simple modulo counter) and
// acks the rest, used in integration tests to force the retry path.
type FailFraction struct {
	N       int
	seen    int
}

func (f *FailFraction) Decide(model.Message) bool {
	f.seen++
	if f.N <= 0 {
		return true
	}
	return f.seen%f.N != 0
}

// OutputFields is the field schema declared for OutputStreamID.
var OutputFields = []string{"value"}

// Spout adapts a Coordinator to the host-runtime pull contract.
type Spout struct {
	coordinator  Coordinator
	outputStream string
	sink         Sink
	log          logrus.FieldLogger

	opened   bool
	active   bool
}

// Config wires one Spout instance.
type Config struct {
	Coordinator  Coordinator
	OutputStream string
	Sink         Sink
	Log          logrus.FieldLogger
}

// New constructs an unopened Spout. Sink defaults to AcceptAll.
func New(cfg Config) *Spout {
	sink := cfg.Sink
	if sink == nil {
		sink = AcceptAll{}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Spout{
		coordinator:  cfg.Coordinator,
		outputStream: cfg.OutputStream,
		sink:         sink,
		log:          log.WithField("component", "harness"),
	}
}

// Open is a one-shot lifecycle hook; the coordinator and its
// VirtualConsumers are already open by the time Spout.Open is called,
// since the host-runtime contract only prescribes driving nextTuple
// after open returns successfully.
func (s *Spout) Open() error {
	if s.opened {
		return spouterrors.IllegalState("spout already opened")
	}
	s.opened = true
	s.active = true
	return nil
}

// DeclareOutputFields announces this spout's single output stream.
func (s *Spout) DeclareOutputFields(declarer Declarer) {
	declarer.DeclareStream(s.outputStream, OutputFields)
}

// NextTuple emits at most one tuple via emitter, immediately resolving
// it through the configured Sink — mirroring a real host runtime's
// asynchronous ack/fail, collapsed to a synchronous call for the demo
// harness the spec's Non-goals confine this component to.
func (s *Spout) NextTuple(emitter Emitter) {
	if !s.active {
		return
	}
	msg, ok := s.coordinator.NextMessage()
	if !ok || msg == nil {
		return
	}
	emitter.Emit(s.outputStream, msg.Values, msg.ID)
	if s.sink.Decide(*msg) {
		if err := s.coordinator.Ack(msg.ID); err != nil {
			s.log.WithError(err).Warn("ack failed")
		}
	} else {
		if err := s.coordinator.Fail(msg.ID); err != nil {
			s.log.WithError(err).Warn("fail failed")
		}
	}
}

// Ack and Fail accept the opaque id the host runtime hands back,
// type-asserting it to a model.MessageId. A wrong underlying type is
// an InvalidArgument — the one edge case deliberately pushed to this
// boundary rather than into VirtualConsumer, since only the host
// contract's opaque interface{} can produce it.
func (s *Spout) Ack(opaqueID interface{}) error {
	id, ok := opaqueID.(model.MessageId)
	if !ok {
		return spouterrors.InvalidArgument("ack: opaque id is not a model.MessageId")
	}
	return s.coordinator.Ack(id)
}

func (s *Spout) Fail(opaqueID interface{}) error {
	id, ok := opaqueID.(model.MessageId)
	if !ok {
		return spouterrors.InvalidArgument("fail: opaque id is not a model.MessageId")
	}
	return s.coordinator.Fail(id)
}

// Activate and Deactivate are permitted no-ops per spec.md §6; they
// flip the flag NextTuple honors so a deactivated spout stops pulling.
func (s *Spout) Activate()   { s.active = true }
func (s *Spout) Deactivate() { s.active = false }

// Close is a permitted no-op at this layer: the coordinator and its
// VirtualConsumers own their own shutdown via Coordinator.Close,
// called directly by cmd/spoutd.
func (s *Spout) Close() {}
