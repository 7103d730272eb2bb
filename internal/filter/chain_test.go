// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/model"
)

func alwaysDrop() Predicate {
	return Predicate{Name: "always-drop", Expr: "true", Eval: func(model.Message) bool { return true }}
}

func neverDrop() Predicate {
	return Predicate{Name: "never-drop", Expr: "false", Eval: func(model.Message) bool { return false }}
}

func TestChain_AddFindRemove(t *testing.T) {
	c := NewChain()
	steps := []Step{alwaysDrop()}
	c.AddSteps("req-1", steps)

	label, ok := c.FindLabel([]Step{alwaysDrop()})
	require.True(t, ok)
	assert.Equal(t, "req-1", label)

	removed := c.RemoveSteps("req-1")
	assert.Equal(t, steps, removed)

	_, ok = c.FindLabel([]Step{alwaysDrop()})
	assert.False(t, ok)
}

// TestChain_Drop mirrors scenario S3: a static always-drop filter
// causes Test to report true for any message.
func TestChain_Drop(t *testing.T) {
	c := NewChain()
	c.AddSteps("s3", []Step{alwaysDrop()})
	msg := model.Message{ID: model.MessageId{Topic: "MyTopic", Partition: 3, Offset: 434323}}
	assert.True(t, c.Test(msg))
}

func TestChain_NoMatch(t *testing.T) {
	c := NewChain()
	c.AddSteps("x", []Step{neverDrop()})
	msg := model.Message{ID: model.MessageId{Topic: "T", Partition: 0, Offset: 1}}
	assert.False(t, c.Test(msg))
}

func TestChain_StableOrder(t *testing.T) {
	c := NewChain()
	c.AddSteps("a", []Step{neverDrop()})
	c.AddSteps("b", []Step{neverDrop()})
	c.AddSteps("c", []Step{neverDrop()})

	labels := make([]string, 0)
	for _, e := range c.entries {
		labels = append(labels, e.label)
	}
	assert.Equal(t, []string{"a", "b", "c"}, labels)
}

func TestNegateSteps(t *testing.T) {
	orig := []Step{alwaysDrop()}
	negated := NegateSteps(orig)

	msg := model.Message{ID: model.MessageId{Topic: "T", Partition: 0, Offset: 1}}
	assert.False(t, negated[0].Matches(msg)) // always-drop inverted => never matches

	label, ok := (&Chain{}).FindLabel(orig) // empty chain: not found, sanity only
	assert.False(t, ok)
	assert.Empty(t, label)
}

// matchesOnly drops a message whose single value equals want, modelling
// a disjoint predicate like "region == us-east-1".
func matchesOnly(name, want string) Predicate {
	return Predicate{Name: name, Expr: want, Eval: func(msg model.Message) bool {
		for _, v := range msg.Values {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
		return false
	}}
}

// TestNegateSteps_MultiStepIsConjunctionOfNegations guards against the
// De Morgan error: negating a multi-step OR by negating each step on
// its own and letting the chain OR those negations back together
// computes ¬A∨¬B = ¬(A∧B), which drops a message that matched only one
// of the original disjoint steps. A correct replay filter must instead
// emit every message that matched at least one of the original steps.
func TestNegateSteps_MultiStepIsConjunctionOfNegations(t *testing.T) {
	a := matchesOnly("region", "us-east-1")
	b := matchesOnly("region", "us-west-2")
	negated := NegateSteps([]Step{a, b})
	require.Len(t, negated, 1)

	c := NewChain()
	c.AddSteps("replay", negated)

	matchesA := model.Message{Values: []interface{}{"us-east-1"}}
	matchesB := model.Message{Values: []interface{}{"us-west-2"}}
	matchesNeither := model.Message{Values: []interface{}{"eu-west-1"}}

	// The firehose's original chain (A OR B) would have diverted both
	// matchesA and matchesB; the replay must reproduce that union by
	// dropping neither, i.e. Test must report false (emit) for both.
	assert.False(t, c.Test(matchesA), "message matching only the first original step must still be emitted by the replay")
	assert.False(t, c.Test(matchesB), "message matching only the second original step must still be emitted by the replay")
	assert.True(t, c.Test(matchesNeither), "message matching neither original step must be dropped by the replay")
}
