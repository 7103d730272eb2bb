// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package buffer

import (
	"sync/atomic"

	"github.com/dynamicspout/spout/internal/model"
)

// FIFO is a single bounded queue shared by all producers. Simple, but
// starvation-prone: a fast producer can crowd out a slow one.
type FIFO struct {
	ch    chan model.Message
	count int64
}

func NewFIFO(capacity int) *FIFO {
	return &FIFO{ch: make(chan model.Message, capacity)}
}

func (f *FIFO) Open() error { return nil }

func (f *FIFO) Put(_ model.VirtualConsumerID, msg model.Message) {
	f.ch <- msg
	atomic.AddInt64(&f.count, 1)
}

func (f *FIFO) Poll() (model.Message, bool) {
	select {
	case msg := <-f.ch:
		atomic.AddInt64(&f.count, -1)
		return msg, true
	default:
		return model.Message{}, false
	}
}

func (f *FIFO) Size() int {
	return int(atomic.LoadInt64(&f.count))
}
