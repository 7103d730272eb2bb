// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package filter

import (
	"github.com/samber/lo"

	"github.com/dynamicspout/spout/internal/model"
)

// anyOf is the composite OR of a set of steps, matching exactly when
// Chain.Test would consider the set a drop. It exists so a multi-step
// sideline request can be negated as a single unit instead of step by
// step: De Morgan's law means negating each step independently and
// letting the chain OR the negations back together (¬A∨¬B) is not the
// inverse of the original OR (¬(A∨B) = ¬A∧¬B).
type anyOf struct {
	steps []Step
}

func (a anyOf) Matches(msg model.Message) bool {
	return lo.SomeBy(a.steps, func(s Step) bool { return s.Matches(msg) })
}

func (a anyOf) Equal(other Step) bool {
	o, ok := other.(anyOf)
	if !ok {
		return false
	}
	return stepsEqual(a.steps, o.steps)
}

// negate wraps an inner step and inverts its verdict. Used to build a
// replay consumer's filter chain from a stopped sideline request's
// original steps: the firehose drops what matches the original steps,
// so the replay consumer must drop everything that does NOT match
// them, emitting exactly the previously-diverted subset.
type negate struct {
	inner Step
}

func (n negate) Matches(msg model.Message) bool {
	return !n.inner.Matches(msg)
}

func (n negate) Equal(other Step) bool {
	o, ok := other.(negate)
	if !ok {
		return false
	}
	if eq, ok := n.inner.(Equatable); ok {
		return eq.Equal(o.inner)
	}
	return reflectStepEqual(n.inner, o.inner)
}

// NegateSteps builds the replay filter for a stopped sideline request.
// The firehose drops a message if ANY of steps matches (Chain.Test ORs
// across an entry's steps), so the replay must drop a message iff NONE
// of steps matches. Negating each step individually and letting the
// chain OR those negations back together would instead compute
// ¬(steps[0]) ∨ ¬(steps[1]) ∨ ... = ¬(steps[0] ∧ steps[1] ∧ ...), which
// is wrong for any request with more than one step. NegateSteps instead
// wraps the whole set in a single composite anyOf step and negates
// that once, so the returned single-element slice matches iff none of
// the original steps match, regardless of how many steps were given.
func NegateSteps(steps []Step) []Step {
	if len(steps) == 0 {
		return nil
	}
	return []Step{negate{inner: anyOf{steps: steps}}}
}
