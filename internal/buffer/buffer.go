// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package buffer implements the MessageBuffer: a bounded, multi-
// producer single-consumer queue sitting between every VirtualConsumer
// worker and the SpoutCoordinator's single pull interface. Two
// variants are provided: FIFO (one shared queue) and RoundRobin (one
// sub-queue per producer, polled fairly).
package buffer

import "github.com/dynamicspout/spout/internal/model"

// Buffer is the capability set both variants implement.
type Buffer interface {
	// Open prepares the buffer for use.
	Open() error

	// Put enqueues msg under producer key, blocking while the relevant
	// queue is at capacity.
	Put(key model.VirtualConsumerID, msg model.Message)

	// Poll returns the next message, or (Message{}, false) if nothing
	// is ready right now. Never blocks.
	Poll() (model.Message, bool)

	// Size reports the total number of buffered messages across all
	// producers.
	Size() int
}

// Variant is the closed set of MessageBuffer implementations.
type Variant string

const (
	VariantFIFO       Variant = "FIFO"
	VariantRoundRobin Variant = "RoundRobin"
)
