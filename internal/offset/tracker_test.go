// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package offset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Basic(t *testing.T) {
	tr := NewTracker(100)
	assert.Equal(t, int64(99), tr.CommitPoint())

	tr.StartTracking(100)
	tr.StartTracking(101)
	tr.StartTracking(102)

	tr.Finish(101)
	assert.Equal(t, int64(99), tr.CommitPoint())

	tr.Finish(100)
	assert.Equal(t, int64(101), tr.CommitPoint())

	tr.Finish(102)
	assert.Equal(t, int64(102), tr.CommitPoint())
}

func TestTracker_FinishTwiceIsNoop(t *testing.T) {
	tr := NewTracker(0)
	tr.StartTracking(0)
	tr.Finish(0)
	assert.Equal(t, int64(0), tr.CommitPoint())
	tr.Finish(0)
	assert.Equal(t, int64(0), tr.CommitPoint())
	assert.Equal(t, 0, tr.InFlightCount())
}

// TestTracker_PropertyRandomOrder checks invariant 1: for any
// interleaving of finishes, the commit point equals the largest
// contiguous finalized prefix.
func TestTracker_PropertyRandomOrder(t *testing.T) {
	const n = 200
	tr := NewTracker(0)
	for i := int64(0); i < n; i++ {
		tr.StartTracking(i)
	}

	order := rand.Perm(n)
	finished := make(map[int64]bool)
	for _, idx := range order {
		off := int64(idx)
		tr.Finish(off)
		finished[off] = true

		// recompute expected commit point from scratch
		expected := int64(-1)
		for o := int64(0); o < n; o++ {
			if !finished[o] {
				break
			}
			expected = o
		}
		assert.Equal(t, expected, tr.CommitPoint())
	}
}
