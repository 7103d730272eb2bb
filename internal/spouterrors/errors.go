// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package spouterrors defines the error kinds from the error-handling
// design: config problems are fatal at open, invalid arguments and
// illegal states are programmer errors, transient faults are retried
// by the caller on the next tick.
package spouterrors

import "github.com/pkg/errors"

// Kind classifies an error for callers that need to branch on it
// (e.g. the coordinator deciding whether to log-and-continue or panic).
type Kind int

const (
	KindConfigMissing Kind = iota
	KindInvalidArgument
	KindIllegalState
	KindTransient
)

// SpoutError wraps an underlying cause with a Kind.
type SpoutError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *SpoutError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *SpoutError) Unwrap() error { return e.cause }

func (e *SpoutError) Kind() Kind { return e.kind }

func newErr(kind Kind, msg string, cause error) *SpoutError {
	return &SpoutError{kind: kind, msg: msg, cause: cause}
}

// ConfigMissing reports a required configuration key that was absent.
func ConfigMissing(key string) error {
	return newErr(KindConfigMissing, "missing required configuration: "+key, nil)
}

// InvalidArgument reports a malformed call argument, e.g. an ack/fail
// payload of the wrong underlying type.
func InvalidArgument(msg string) error {
	return newErr(KindInvalidArgument, msg, nil)
}

// IllegalState reports a programmer error such as calling open() twice.
func IllegalState(msg string) error {
	return newErr(KindIllegalState, msg, nil)
}

// Transient wraps a poll/deserialize/persistence failure that the
// caller should log and retry on the next tick.
func Transient(msg string, cause error) error {
	return newErr(KindTransient, msg, cause)
}

// Is reports whether err (or any error it wraps) is a SpoutError of kind.
func Is(err error, kind Kind) bool {
	var se *SpoutError
	if errors.As(err, &se) {
		return se.kind == kind
	}
	return false
}
