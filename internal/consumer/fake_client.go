// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package consumer

import (
	"sync"

	"github.com/dynamicspout/spout/internal/model"
)

// FakeClient is an in-memory LogConsumerClient used by VirtualConsumer
// tests. Records are pre-seeded via Seed; Poll drains them in the
// order seeded, per partition.
type FakeClient struct {
	mu sync.Mutex

	topic      string
	partitions map[int32]bool
	queues     map[int32][]*Record
	committed  map[int32]int64
	unsubbed   map[int32]int
	cleared    int
	closed     bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		partitions: make(map[int32]bool),
		queues:     make(map[int32][]*Record),
		committed:  make(map[int32]int64),
		unsubbed:   make(map[int32]int),
	}
}

// Seed appends a record to partition's queue, to be returned by a
// later Poll or SeekAndReadOne.
func (f *FakeClient) Seed(partition int32, offset int64, key, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[partition] = append(f.queues[partition], &Record{
		Topic: f.topic, Partition: partition, Offset: offset, Key: key, Value: value,
	})
}

func (f *FakeClient) Open(topic string, partitions []int32, startingState model.ConsumerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	for _, p := range partitions {
		f.partitions[p] = true
	}
	return nil
}

func (f *FakeClient) Poll() (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := range f.partitions {
		q := f.queues[p]
		if len(q) > 0 {
			r := q[0]
			r.Topic = f.topic
			f.queues[p] = q[1:]
			return r, nil
		}
	}
	return nil, nil
}

func (f *FakeClient) SeekAndReadOne(partition int32, offset int64) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.queues[partition] {
		if r.Offset == offset {
			r.Topic = f.topic
			return r, nil
		}
	}
	return &Record{Topic: f.topic, Partition: partition, Offset: offset}, nil
}

func (f *FakeClient) Commit(partition int32, offset int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed[partition] = offset
	return nil
}

func (f *FakeClient) CommittedOffset(partition int32) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off, ok := f.committed[partition]
	return off, ok
}

func (f *FakeClient) Unsubscribe(partition int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.partitions, partition)
	f.unsubbed[partition]++
	return nil
}

func (f *FakeClient) UnsubscribeCount(partition int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubbed[partition]
}

func (f *FakeClient) ClearPersistedOffsets() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *FakeClient) ClearedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func (f *FakeClient) CurrentState() model.ConsumerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := model.NewConsumerStateBuilder()
	for p, off := range f.committed {
		b.WithOffset(f.topic, p, off)
	}
	return b.Build()
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
