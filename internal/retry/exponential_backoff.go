// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package retry

import (
	"time"

	backoffpkg "github.com/cenkalti/backoff/v4"

	"github.com/dynamicspout/spout/internal/model"
)

// ExponentialBackoffConfig parametrizes the ExponentialBackoff variant.
type ExponentialBackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// MaxAttempts bounds how many times an id may be retried; negative
	// means unbounded.
	MaxAttempts int
	Now         Clock
}

type expState struct {
	backOff       *backoffpkg.ExponentialBackOff
	attempt       int
	firstFailTime time.Time
	nextRetryTime time.Time
	inFlight      bool
}

// ExponentialBackoff schedules retries on a per-id exponential curve,
// computed via cenkalti/backoff's ExponentialBackOff calculator with
// jitter disabled so the schedule is exactly base*multiplier^attempt,
// capped at maxDelay.
type ExponentialBackoff struct {
	cfg   ExponentialBackoffConfig
	now   Clock
	state map[model.MessageId]*expState
}

func NewExponentialBackoff(cfg ExponentialBackoffConfig) *ExponentialBackoff {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ExponentialBackoff{cfg: cfg, now: now, state: make(map[model.MessageId]*expState)}
}

func (e *ExponentialBackoff) Open() error { return nil }

func (e *ExponentialBackoff) newBackOff() *backoffpkg.ExponentialBackOff {
	b := backoffpkg.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialDelay
	b.Multiplier = e.cfg.Multiplier
	b.MaxInterval = e.cfg.MaxDelay
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func (e *ExponentialBackoff) Failed(id model.MessageId) {
	st, ok := e.state[id]
	if !ok {
		st = &expState{backOff: e.newBackOff(), firstFailTime: e.now()}
		e.state[id] = st
	}
	delay := st.backOff.NextBackOff()
	st.attempt++
	st.nextRetryTime = e.now().Add(delay)
	st.inFlight = false
}

func (e *ExponentialBackoff) Acked(id model.MessageId) {
	delete(e.state, id)
}

func (e *ExponentialBackoff) RetryFurther(id model.MessageId) bool {
	if e.cfg.MaxAttempts < 0 {
		return true
	}
	st, ok := e.state[id]
	if !ok {
		return true
	}
	return st.attempt < e.cfg.MaxAttempts
}

func (e *ExponentialBackoff) NextFailedMessageToRetry() *model.MessageId {
	now := e.now()
	var best model.MessageId
	var bestState *expState
	for id, st := range e.state {
		if st.inFlight || st.nextRetryTime.After(now) {
			continue
		}
		if bestState == nil ||
			st.nextRetryTime.Before(bestState.nextRetryTime) ||
			(st.nextRetryTime.Equal(bestState.nextRetryTime) && st.firstFailTime.Before(bestState.firstFailTime)) {
			best, bestState = id, st
		}
	}
	if bestState == nil {
		return nil
	}
	bestState.inFlight = true
	return &best
}
