// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package consumer implements the VirtualConsumer state machine and
// its LogConsumerClient boundary — the "external collaborator" the
// spec assumes provides poll/seek/commit/assign primitives over the
// partitioned log.
package consumer

import "github.com/dynamicspout/spout/internal/model"

// Record is a single raw record read from the log, before
// deserialization or filtering.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// LogConsumerClient is the external collaborator spec.md §1 assumes:
// poll/seek/commit/assign over a partitioned append-only log. It is
// not thread-safe; a VirtualConsumer owns exactly one instance and
// drives it from a single goroutine.
type LogConsumerClient interface {
	// Open acquires broker connections and, if startingState carries
	// offsets, seeks every assigned partition to them.
	Open(topic string, partitions []int32, startingState model.ConsumerState) error

	// Poll returns the next available record, or (nil, nil) if none is
	// ready right now. It never blocks.
	Poll() (*Record, error)

	// SeekAndReadOne seeks to offset on partition and synchronously
	// reads exactly that one record, used to re-emit a message a retry
	// manager wants to retry when it has fallen out of any local cache.
	SeekAndReadOne(partition int32, offset int64) (*Record, error)

	// Commit records offset as the new committed point for partition.
	Commit(partition int32, offset int64) error

	// Unsubscribe stops consuming partition.
	Unsubscribe(partition int32) error

	// ClearPersistedOffsets drops any durable offset state this client
	// (or its backing persistence) holds for the consumer it serves.
	ClearPersistedOffsets() error

	// CurrentState returns the committed (not in-flight) offset per
	// assigned partition.
	CurrentState() model.ConsumerState

	// Close releases all broker connections. Idempotent.
	Close() error
}
