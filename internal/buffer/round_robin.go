// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package buffer

import (
	"sync"

	"github.com/dynamicspout/spout/internal/model"
)

// RoundRobin gives every producer its own bounded sub-queue and polls
// them fairly from a cursor that advances by one each call, so a fast
// producer cannot starve a slow one. The producer key list is
// maintained copy-on-write so producers registered or (conceptually)
// retired between polls never invalidate an in-flight iteration.
type RoundRobin struct {
	capacity int

	mu     sync.Mutex
	queues map[model.VirtualConsumerID]chan model.Message
	keys   []model.VirtualConsumerID
	cursor int
}

func NewRoundRobin(capacity int) *RoundRobin {
	return &RoundRobin{
		capacity: capacity,
		queues:   make(map[model.VirtualConsumerID]chan model.Message),
	}
}

func (r *RoundRobin) Open() error { return nil }

func (r *RoundRobin) getOrCreate(key model.VirtualConsumerID) chan model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[key]
	if ok {
		return q
	}
	q = make(chan model.Message, r.capacity)
	r.queues[key] = q
	newKeys := make([]model.VirtualConsumerID, len(r.keys), len(r.keys)+1)
	copy(newKeys, r.keys)
	r.keys = append(newKeys, key)
	return q
}

func (r *RoundRobin) Put(key model.VirtualConsumerID, msg model.Message) {
	r.getOrCreate(key) <- msg
}

func (r *RoundRobin) Poll() (model.Message, bool) {
	r.mu.Lock()
	keys := r.keys // copy-on-write: safe to read without copying
	n := len(keys)
	if n == 0 {
		r.mu.Unlock()
		return model.Message{}, false
	}
	start := r.cursor % n
	r.cursor++
	r.mu.Unlock()

	for i := 0; i < n; i++ {
		key := keys[(start+i)%n]
		r.mu.Lock()
		q := r.queues[key]
		r.mu.Unlock()
		if q == nil {
			continue
		}
		select {
		case msg := <-q:
			return msg, true
		default:
		}
	}
	return model.Message{}, false
}

func (r *RoundRobin) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, q := range r.queues {
		total += len(q)
	}
	return total
}
