// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package model holds the value types shared across the ingestion
// engine: message identities, immutable messages, and per-partition
// consumer state snapshots.
package model

import "fmt"

// MessageId identifies a single record emitted by a VirtualConsumer.
// Equality is by all four fields. SourceVirtualConsumerID lets the
// coordinator route a later ack/fail back to the consumer that owns
// the commit decision for this offset.
type MessageId struct {
	Topic                   string
	Partition               int32
	Offset                  int64
	SourceVirtualConsumerID string
}

func (id MessageId) String() string {
	return fmt.Sprintf("%s/%d@%d<-%s", id.Topic, id.Partition, id.Offset, id.SourceVirtualConsumerID)
}

// PartitionKey is the (topic, partition) pair MessageId and
// ConsumerState index by.
type PartitionKey struct {
	Topic     string
	Partition int32
}

func (id MessageId) PartitionKey() PartitionKey {
	return PartitionKey{Topic: id.Topic, Partition: id.Partition}
}

// Message is an immutable record handed to downstream workers.
type Message struct {
	ID     MessageId
	Values []interface{}
}

// ConsumerState is an immutable (topic, partition) -> offset mapping,
// used both as a starting-state (seek targets) and an ending-state
// (inclusive upper bound per partition).
type ConsumerState struct {
	offsets map[PartitionKey]int64
}

// Get returns the offset registered for key and whether it was present.
func (s ConsumerState) Get(key PartitionKey) (int64, bool) {
	if s.offsets == nil {
		return 0, false
	}
	off, ok := s.offsets[key]
	return off, ok
}

// Partitions returns the set of partitions this state covers.
func (s ConsumerState) Partitions() []PartitionKey {
	keys := make([]PartitionKey, 0, len(s.offsets))
	for k := range s.offsets {
		keys = append(keys, k)
	}
	return keys
}

// IsEmpty reports whether the state carries no partitions at all —
// the zero value of ConsumerState, used to mean "no starting state".
func (s ConsumerState) IsEmpty() bool {
	return len(s.offsets) == 0
}

// ConsumerStateBuilder builds a ConsumerState one partition at a time.
type ConsumerStateBuilder struct {
	offsets map[PartitionKey]int64
}

func NewConsumerStateBuilder() *ConsumerStateBuilder {
	return &ConsumerStateBuilder{offsets: make(map[PartitionKey]int64)}
}

func (b *ConsumerStateBuilder) WithOffset(topic string, partition int32, offset int64) *ConsumerStateBuilder {
	b.offsets[PartitionKey{Topic: topic, Partition: partition}] = offset
	return b
}

func (b *ConsumerStateBuilder) Build() ConsumerState {
	frozen := make(map[PartitionKey]int64, len(b.offsets))
	for k, v := range b.offsets {
		frozen[k] = v
	}
	return ConsumerState{offsets: frozen}
}
