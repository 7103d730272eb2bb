// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package retry implements the RetryManager variants from the spec:
// NeverRetry, FailedTuplesFirst and ExponentialBackoff. Every operation
// on a single Manager instance is serialized by its owning worker
// goroutine, so implementations carry no internal locking.
package retry

import (
	"time"

	"github.com/dynamicspout/spout/internal/model"
)

// Manager is the capability set every retry variant implements.
type Manager interface {
	// Open initializes the manager; safe to call once per instance.
	Open() error

	// Failed registers id as failed, or re-registers it for retry if
	// it was already known. An id that was previously handed out via
	// NextFailedMessageToRetry is no longer "in flight" afterwards.
	Failed(id model.MessageId)

	// Acked removes all retry state for id.
	Acked(id model.MessageId)

	// RetryFurther reports whether id is still eligible for retry.
	RetryFurther(id model.MessageId) bool

	// NextFailedMessageToRetry returns a failed id ready to retry, or
	// nil if none is ready. The returned id transitions to "in flight":
	// it will not be returned again until a subsequent Failed call.
	NextFailedMessageToRetry() *model.MessageId
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time
