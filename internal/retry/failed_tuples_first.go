// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package retry

import (
	"container/list"

	"github.com/dynamicspout/spout/internal/model"
)

// FailedTuplesFirst retries every failure immediately and keeps
// retrying forever; it is what replay consumers use so that every
// diverted message that fails is eventually re-emitted. Failed ids
// are handed back out in the order they first failed.
type FailedTuplesFirst struct {
	order    *list.List
	elements map[model.MessageId]*list.Element
	inFlight map[model.MessageId]bool
}

func NewFailedTuplesFirst() *FailedTuplesFirst {
	return &FailedTuplesFirst{
		order:    list.New(),
		elements: make(map[model.MessageId]*list.Element),
		inFlight: make(map[model.MessageId]bool),
	}
}

func (f *FailedTuplesFirst) Open() error { return nil }

func (f *FailedTuplesFirst) Failed(id model.MessageId) {
	if _, ok := f.elements[id]; !ok {
		f.elements[id] = f.order.PushBack(id)
	}
	f.inFlight[id] = false
}

func (f *FailedTuplesFirst) Acked(id model.MessageId) {
	if el, ok := f.elements[id]; ok {
		f.order.Remove(el)
		delete(f.elements, id)
	}
	delete(f.inFlight, id)
}

func (f *FailedTuplesFirst) RetryFurther(model.MessageId) bool { return true }

func (f *FailedTuplesFirst) NextFailedMessageToRetry() *model.MessageId {
	for el := f.order.Front(); el != nil; el = el.Next() {
		id := el.Value.(model.MessageId)
		if f.inFlight[id] {
			continue
		}
		f.inFlight[id] = true
		return &id
	}
	return nil
}
