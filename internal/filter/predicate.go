// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package filter

import "github.com/dynamicspout/spout/internal/model"

// Predicate is a named, opaque Step. The filter language itself is a
// non-goal (spec.md §1); Predicate exists so steps carry enough
// identity for value equality (two Predicates with the same Name and
// Expr are the same step) without this engine interpreting Expr.
type Predicate struct {
	Name string
	Expr string
	Eval func(model.Message) bool
}

func (p Predicate) Matches(msg model.Message) bool {
	if p.Eval == nil {
		return false
	}
	return p.Eval(msg)
}

// Equal compares Predicates by Name and Expr only — Eval is a closure
// and not value-comparable, but two predicates submitted with the same
// name/expression are considered the same filter step (this is what
// SidelineController.Stop relies on to re-find a START's label).
func (p Predicate) Equal(other Step) bool {
	o, ok := other.(Predicate)
	if !ok {
		return false
	}
	return p.Name == o.Name && p.Expr == o.Expr
}
