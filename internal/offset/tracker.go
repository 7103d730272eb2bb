// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package offset implements PartitionOffsetTracker: per (topic,
// partition) bookkeeping of in-flight offsets and the commit point
// they advance. It is internal to one VirtualConsumer and is never
// shared, so it carries no locking of its own.
package offset

// Tracker tracks, for a single partition, every offset that has been
// emitted but not yet finalized, and the most recently finalized
// (committed) offset.
type Tracker struct {
	finalized int64
	inFlight  map[int64]struct{}
	maxStarted int64
	started   bool
}

// NewTracker creates a tracker whose initial commit point is
// startingOffset-1, matching "nothing committed yet" for a consumer
// that will start reading at startingOffset.
func NewTracker(startingOffset int64) *Tracker {
	return &Tracker{
		finalized: startingOffset - 1,
		inFlight:  make(map[int64]struct{}),
	}
}

// StartTracking registers offset as emitted but not yet finalized. It
// must be strictly greater than any offset previously started for
// this partition.
func (t *Tracker) StartTracking(offset int64) {
	t.inFlight[offset] = struct{}{}
	if !t.started || offset > t.maxStarted {
		t.maxStarted = offset
		t.started = true
	}
}

// Finish marks offset as done (acked or abandoned). Finishing the same
// offset twice is a no-op. After finishing, the commit point advances
// to the largest contiguous finalized value.
func (t *Tracker) Finish(offset int64) {
	if _, ok := t.inFlight[offset]; !ok {
		return
	}
	delete(t.inFlight, offset)
	for {
		next := t.finalized + 1
		if _, stillInFlight := t.inFlight[next]; stillInFlight {
			break
		}
		// Stop at the first offset beyond the highest one started: it
		// is not "done", it simply hasn't arrived. Offsets below that
		// which were never started (gaps in the log) are skipped over.
		if next > t.maxStarted {
			break
		}
		t.finalized = next
	}
}

// CommitPoint returns the largest offset O such that every offset in
// [firstSeen, O] has been finalized.
func (t *Tracker) CommitPoint() int64 {
	return t.finalized
}

// InFlightCount reports how many offsets are currently emitted but not
// yet finalized — bounded in practice by the log-consumer's maximum
// outstanding poll.
func (t *Tracker) InFlightCount() int {
	return len(t.inFlight)
}
