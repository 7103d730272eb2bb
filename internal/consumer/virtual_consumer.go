// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package consumer

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/deserializer"
	"github.com/dynamicspout/spout/internal/filter"
	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/offset"
	"github.com/dynamicspout/spout/internal/persistence"
	"github.com/dynamicspout/spout/internal/retry"
	"github.com/dynamicspout/spout/internal/spouterrors"
)

// lastPollCacheSize bounds the per-VirtualConsumer cache of recently
// emitted records, consulted on retry before falling back to
// SeekAndReadOne.
const lastPollCacheSize = 4096

// Config wires one VirtualConsumer's collaborators and bounds. Config
// is consumed once by NewVirtualConsumer.
type Config struct {
	ID                model.VirtualConsumerID
	Topic             string
	Partitions        []int32
	StartingState     model.ConsumerState
	EndingState       model.ConsumerState
	HasEndingState    bool
	SidelineRequestID string // empty for the firehose

	Client       LogConsumerClient
	Deserializer deserializer.Deserializer
	RetryManager retry.Manager
	FilterChain  *filter.Chain
	Persistence  persistence.Adapter
	Log          logrus.FieldLogger
}

// VirtualConsumer is one independent consumer instance bound to a
// (topic, partition-set, start-state, optional end-state, filter
// chain, retry manager). It is not internally synchronized: nextMessage,
// Ack and Fail must all be called from the single worker goroutine the
// coordinator dedicates to this consumer.
type VirtualConsumer struct {
	id                model.VirtualConsumerID
	topic             string
	partitionSet      map[int32]bool
	startingState     model.ConsumerState
	endingState       model.ConsumerState
	hasEndingState    bool
	sidelineRequestID string

	client       LogConsumerClient
	deserializer deserializer.Deserializer
	retryManager retry.Manager
	filterChain  *filter.Chain
	persistence  persistence.Adapter
	log          logrus.FieldLogger

	trackers        map[int32]*offset.Tracker
	donePartitions  map[int32]bool
	lastPoll        *lru.Cache[model.MessageId, *Record]

	opened        bool
	completed     bool
	closed        bool
	stopRequested int32
}

// NewVirtualConsumer constructs an unopened VirtualConsumer from cfg.
func NewVirtualConsumer(cfg Config) *VirtualConsumer {
	partitionSet := make(map[int32]bool, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		partitionSet[p] = true
	}
	cache, _ := lru.New[model.MessageId, *Record](lastPollCacheSize)
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &VirtualConsumer{
		id:                cfg.ID,
		topic:             cfg.Topic,
		partitionSet:      partitionSet,
		startingState:     cfg.StartingState,
		endingState:       cfg.EndingState,
		hasEndingState:    cfg.HasEndingState,
		sidelineRequestID: cfg.SidelineRequestID,
		client:            cfg.Client,
		deserializer:      cfg.Deserializer,
		retryManager:      cfg.RetryManager,
		filterChain:       cfg.FilterChain,
		persistence:       cfg.Persistence,
		log:               log.WithField("virtualConsumerId", string(cfg.ID)),
		trackers:          make(map[int32]*offset.Tracker),
		donePartitions:    make(map[int32]bool),
		lastPoll:          cache,
	}
}

func (vc *VirtualConsumer) ID() model.VirtualConsumerID { return vc.id }

// FilterChain exposes the firehose's filter chain so the
// SidelineController can add/find/remove steps directly, per
// spec.md §4.7 ("the controller holds the firehose directly").
func (vc *VirtualConsumer) FilterChain() *filter.Chain { return vc.filterChain }

// Open acquires the log-consumer client and retry manager and seeds a
// PartitionOffsetTracker per assigned partition. One-shot; calling
// Open twice is a programmer error.
func (vc *VirtualConsumer) Open() error {
	if vc.opened {
		return spouterrors.IllegalState("virtual consumer " + string(vc.id) + " already opened")
	}
	vc.opened = true

	partitions := make([]int32, 0, len(vc.partitionSet))
	for p := range vc.partitionSet {
		partitions = append(partitions, p)
	}
	if err := vc.client.Open(vc.topic, partitions, vc.startingState); err != nil {
		return errors.Wrap(err, "failed to open log consumer client")
	}
	if err := vc.retryManager.Open(); err != nil {
		return errors.Wrap(err, "failed to open retry manager")
	}
	for p := range vc.partitionSet {
		startOffset := int64(0)
		if off, ok := vc.startingState.Get(model.PartitionKey{Topic: vc.topic, Partition: p}); ok {
			startOffset = off + 1
		}
		vc.trackers[p] = offset.NewTracker(startOffset)
	}
	return nil
}

func (vc *VirtualConsumer) trackerFor(partition int32) *offset.Tracker {
	tr, ok := vc.trackers[partition]
	if !ok {
		tr = offset.NewTracker(0)
		vc.trackers[partition] = tr
	}
	return tr
}

// NextMessage performs a single non-blocking step: retry re-emit takes
// priority over a fresh poll. Returns (nil, nil) when there is nothing
// to emit right now; a non-nil error is always Transient or IllegalState.
func (vc *VirtualConsumer) NextMessage() (*model.Message, error) {
	if id := vc.retryManager.NextFailedMessageToRetry(); id != nil {
		return vc.reemit(*id)
	}

	rec, err := vc.client.Poll()
	if err != nil {
		return nil, spouterrors.Transient("log consumer poll failed", err)
	}
	if rec == nil {
		return nil, nil
	}
	return vc.process(rec)
}

func (vc *VirtualConsumer) reemit(id model.MessageId) (*model.Message, error) {
	rec, ok := vc.lastPoll.Get(id)
	if !ok {
		var err error
		rec, err = vc.client.SeekAndReadOne(id.Partition, id.Offset)
		if err != nil {
			return nil, spouterrors.Transient("retry re-read failed", err)
		}
	}
	fields, err := vc.deserializer.Deserialize(rec.Key, rec.Value)
	if err != nil {
		return nil, spouterrors.Transient("deserialize failed during retry", err)
	}
	return &model.Message{ID: id, Values: fields}, nil
}

func (vc *VirtualConsumer) process(rec *Record) (*model.Message, error) {
	if vc.hasEndingState {
		endOffset, ok := vc.endingState.Get(model.PartitionKey{Topic: rec.Topic, Partition: rec.Partition})
		if !ok {
			return nil, spouterrors.IllegalState("record partition not present in ending state")
		}
		if rec.Offset > endOffset {
			// Overshoot: silently dropped, never committed — a replay
			// reading exactly this range later depends on log retention,
			// not on this system.
			vc.markPartitionDone(rec.Partition)
			return nil, nil
		}
	}

	fields, err := vc.deserializer.Deserialize(rec.Key, rec.Value)
	if err != nil {
		return nil, spouterrors.Transient("deserialize failed", err)
	}
	if fields == nil {
		vc.skipAndCommit(rec.Partition, rec.Offset)
		return nil, nil
	}

	id := model.MessageId{Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, SourceVirtualConsumerID: string(vc.id)}
	msg := model.Message{ID: id, Values: fields}
	if vc.filterChain != nil && vc.filterChain.Test(msg) {
		vc.skipAndCommit(rec.Partition, rec.Offset)
		return nil, nil
	}

	vc.trackerFor(rec.Partition).StartTracking(rec.Offset)
	vc.lastPoll.Add(id, rec)
	return &msg, nil
}

// skipAndCommit registers and immediately finalizes offset so the
// commit point advances even though no Message is emitted — required
// for both filter drops and unparseable records (spec.md §4.4).
func (vc *VirtualConsumer) skipAndCommit(partition int32, offset int64) {
	tr := vc.trackerFor(partition)
	tr.StartTracking(offset)
	tr.Finish(offset)
	if err := vc.client.Commit(partition, tr.CommitPoint()); err != nil {
		vc.log.WithError(err).Warn("commit failed after skip")
	}
}

func (vc *VirtualConsumer) markPartitionDone(partition int32) {
	if vc.donePartitions[partition] {
		return
	}
	vc.donePartitions[partition] = true
	if err := vc.client.Unsubscribe(partition); err != nil {
		vc.log.WithError(err).Warn("failed to unsubscribe completed partition")
	}
	if len(vc.donePartitions) == len(vc.partitionSet) {
		vc.completed = true
	}
}

// Ack informs the retry manager and offset tracker that id's message
// was fully processed, and propagates the advanced commit point to the
// log consumer. A nil id is a silent no-op.
func (vc *VirtualConsumer) Ack(id *model.MessageId) error {
	if id == nil {
		return nil
	}
	if id.SourceVirtualConsumerID != string(vc.id) {
		return spouterrors.InvalidArgument("ack id does not belong to virtual consumer " + string(vc.id))
	}
	vc.retryManager.Acked(*id)
	tr := vc.trackerFor(id.Partition)
	tr.Finish(id.Offset)
	return vc.client.Commit(id.Partition, tr.CommitPoint())
}

// Fail registers a retry, unless the retry manager has exhausted
// retries for id, in which case it is treated as an ack (abandoned).
func (vc *VirtualConsumer) Fail(id *model.MessageId) error {
	if id == nil {
		return nil
	}
	if id.SourceVirtualConsumerID != string(vc.id) {
		return spouterrors.InvalidArgument("fail id does not belong to virtual consumer " + string(vc.id))
	}
	if !vc.retryManager.RetryFurther(*id) {
		return vc.Ack(id)
	}
	vc.retryManager.Failed(*id)
	return nil
}

// RequestStop is the cooperative termination signal Coordinator.Close
// sets; the worker checks it between polls.
func (vc *VirtualConsumer) RequestStop() { atomic.StoreInt32(&vc.stopRequested, 1) }

func (vc *VirtualConsumer) IsStopRequested() bool { return atomic.LoadInt32(&vc.stopRequested) == 1 }

// Completed reports whether every assigned partition has reached its
// ending state. Always false for a consumer with no ending state.
func (vc *VirtualConsumer) Completed() bool { return vc.completed }

// MarkCompletedForTest is a package-visible test hook replacing the
// reflection-into-a-private-field pattern flagged in SPEC_FULL.md §9.
func (vc *VirtualConsumer) MarkCompletedForTest() { vc.completed = true }

// GetCurrentState delegates to the log consumer and returns the
// committed (not in-flight) state.
func (vc *VirtualConsumer) GetCurrentState() model.ConsumerState {
	return vc.client.CurrentState()
}

func (vc *VirtualConsumer) Unsubscribe(partition int32) error {
	return vc.client.Unsubscribe(partition)
}

// Close releases the log-consumer client. If this consumer is
// completed, it clears persisted offsets and — if it was a sideline
// replay — purges the sideline payload; otherwise it flushes the
// current commit state so a later recovery can resume from it. Always
// closes the log consumer last. Idempotent.
func (vc *VirtualConsumer) Close() error {
	if vc.closed {
		return nil
	}
	vc.closed = true

	if vc.completed {
		if err := vc.client.ClearPersistedOffsets(); err != nil {
			vc.log.WithError(err).Warn("failed to clear persisted offsets on completed close")
		}
		if vc.sidelineRequestID != "" && vc.persistence != nil {
			if err := vc.persistence.ClearSidelineRequest(vc.sidelineRequestID); err != nil {
				vc.log.WithError(err).Warn("failed to purge sideline payload on completed close")
			}
		}
	} else if vc.persistence != nil {
		if err := vc.persistence.PersistConsumerState(string(vc.id), vc.client.CurrentState()); err != nil {
			vc.log.WithError(err).Warn("failed to flush consumer state on close")
		}
	}

	return vc.client.Close()
}
