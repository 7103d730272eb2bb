// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package consumer

import (
	"sync"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

// SaramaClient implements LogConsumerClient over a real Kafka cluster
// via IBM/sarama, with one sarama.PartitionConsumer per assigned
// partition fanned into a single buffered channel. Committed offsets
// are tracked in memory here and flushed to the persistence adapter by
// VirtualConsumer.Close; this client itself never talks to a Kafka
// consumer-group coordinator, since commit bookkeeping is the job of
// PartitionOffsetTracker + persistence.Adapter, not the broker.
type SaramaClient struct {
	consumerID string
	topic      string
	client     sarama.Client
	consumer   sarama.Consumer
	store      persistence.Adapter
	log        logrus.FieldLogger

	mu         sync.Mutex
	partitions map[int32]sarama.PartitionConsumer
	committed  map[int32]int64
	records    chan *Record
	errs       chan error
}

// NewSaramaClient dials brokers and wraps the resulting client. store
// is consulted only for ClearPersistedOffsets; committed-offset
// snapshots for normal operation come from CurrentState's in-memory
// view, seeded at Open from whatever persisted state the caller
// passes in via startingState.
func NewSaramaClient(consumerID string, brokers []string, cfg *sarama.Config, store persistence.Adapter, log logrus.FieldLogger) (*SaramaClient, error) {
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sarama client")
	}
	cons, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to create sarama consumer")
	}
	return &SaramaClient{
		consumerID: consumerID,
		client:     client,
		consumer:   cons,
		store:      store,
		log:        log,
		partitions: make(map[int32]sarama.PartitionConsumer),
		committed:  make(map[int32]int64),
		records:    make(chan *Record, 1024),
		errs:       make(chan error, 64),
	}, nil
}

func (c *SaramaClient) Open(topic string, partitions []int32, startingState model.ConsumerState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topic = topic
	for _, p := range partitions {
		offset := sarama.OffsetOldest
		if off, ok := startingState.Get(model.PartitionKey{Topic: topic, Partition: p}); ok {
			offset = off + 1 // startingState is the last committed offset; resume after it
		}
		pc, err := c.consumer.ConsumePartition(topic, p, offset)
		if err != nil {
			return errors.Wrapf(err, "failed to consume partition %s/%d", topic, p)
		}
		c.partitions[p] = pc
		c.committed[p] = offset - 1
		go c.pump(pc)
	}
	return nil
}

func (c *SaramaClient) pump(pc sarama.PartitionConsumer) {
	for {
		select {
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			c.records <- &Record{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset, Key: msg.Key, Value: msg.Value}
		case err, ok := <-pc.Errors():
			if !ok {
				return
			}
			select {
			case c.errs <- err:
			default:
				c.log.WithError(err).Warn("dropping partition consumer error, channel full")
			}
		}
	}
}

func (c *SaramaClient) Poll() (*Record, error) {
	select {
	case r := <-c.records:
		return r, nil
	case err := <-c.errs:
		return nil, errors.Wrap(err, "kafka poll error")
	default:
		return nil, nil
	}
}

// SeekAndReadOne spins up a throwaway PartitionConsumer bound to the
// single requested offset rather than reseeking the live one, so the
// main pump goroutine for partition isn't disturbed mid-stream.
func (c *SaramaClient) SeekAndReadOne(partition int32, offset int64) (*Record, error) {
	c.mu.Lock()
	topic := c.topic
	c.mu.Unlock()

	oneOff, err := c.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seek for retry re-read")
	}
	defer oneOff.Close()
	select {
	case msg := <-oneOff.Messages():
		return &Record{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset, Key: msg.Key, Value: msg.Value}, nil
	case err := <-oneOff.Errors():
		return nil, errors.Wrap(err, "retry re-read failed")
	}
}

func (c *SaramaClient) Commit(partition int32, offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed[partition] = offset
	return nil
}

func (c *SaramaClient) Unsubscribe(partition int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc, ok := c.partitions[partition]
	if !ok {
		return nil
	}
	delete(c.partitions, partition)
	return pc.Close()
}

func (c *SaramaClient) ClearPersistedOffsets() error {
	return c.store.ClearConsumerState(c.consumerID)
}

func (c *SaramaClient) CurrentState() model.ConsumerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := model.NewConsumerStateBuilder()
	for p, off := range c.committed {
		b.WithOffset(c.topic, p, off)
	}
	return b.Build()
}

func (c *SaramaClient) Close() error {
	c.mu.Lock()
	for _, pc := range c.partitions {
		pc.Close()
	}
	c.mu.Unlock()
	if err := c.consumer.Close(); err != nil {
		return err
	}
	return c.client.Close()
}
