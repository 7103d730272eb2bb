// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package coordinator implements the SpoutCoordinator: one dedicated
// worker goroutine per VirtualConsumer, a single monitor goroutine that
// drains newly-submitted consumers and reaps completed ones, and
// ack/fail dispatch serialized onto each consumer's own worker via a
// per-consumer bounded command queue.
package coordinator

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/buffer"
	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/spouterrors"
)

// virtualConsumer is the subset of *consumer.VirtualConsumer the
// coordinator drives. Declared locally to avoid a dependency from
// coordinator -> consumer beyond what's actually used, and so tests
// can substitute a fake.
type virtualConsumer interface {
	ID() model.VirtualConsumerID
	NextMessage() (*model.Message, error)
	Ack(id *model.MessageId) error
	Fail(id *model.MessageId) error
	RequestStop()
	IsStopRequested() bool
	Completed() bool
	Close() error
}

type command struct {
	ack bool // true = ack, false = fail
	id  model.MessageId
}

type workerHandle struct {
	vc     virtualConsumer
	cmds   chan command
	stopCh chan struct{}
	done   chan struct{}
}

// Config bounds the coordinator's scheduling intervals, matching
// spec.md §6's coordinator.monitorIntervalMs / workerIdleSleepMs.
type Config struct {
	Buffer              buffer.Buffer
	MonitorInterval     time.Duration
	WorkerIdleSleep     time.Duration
	PendingQueueDepth   int
	PerConsumerCmdDepth int
	Log                 logrus.FieldLogger
}

// Coordinator owns the set of VirtualConsumers and the MessageBuffer.
type Coordinator struct {
	buf             buffer.Buffer
	monitorInterval time.Duration
	workerIdleSleep time.Duration
	cmdDepth        int
	log             logrus.FieldLogger

	mu       sync.RWMutex
	workers  map[model.VirtualConsumerID]*workerHandle
	pending  chan virtualConsumer
	stopAll  chan struct{}
	monitorWG sync.WaitGroup
	closed   bool
}

func New(cfg Config) *Coordinator {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	pendingDepth := cfg.PendingQueueDepth
	if pendingDepth <= 0 {
		pendingDepth = 64
	}
	cmdDepth := cfg.PerConsumerCmdDepth
	if cmdDepth <= 0 {
		cmdDepth = 256
	}
	return &Coordinator{
		buf:             cfg.Buffer,
		monitorInterval: cfg.MonitorInterval,
		workerIdleSleep: cfg.WorkerIdleSleep,
		cmdDepth:        cmdDepth,
		log:             log,
		workers:         make(map[model.VirtualConsumerID]*workerHandle),
		pending:         make(chan virtualConsumer, pendingDepth),
		stopAll:         make(chan struct{}),
	}
}

// Open starts the monitor task.
func (c *Coordinator) Open() error {
	if err := c.buf.Open(); err != nil {
		return err
	}
	c.monitorWG.Add(1)
	go c.monitorLoop()
	return nil
}

// AddVirtualConsumer submits vc for a dedicated worker. Safe to call
// from any goroutine.
func (c *Coordinator) AddVirtualConsumer(vc virtualConsumer) {
	c.pending <- vc
}

// NextMessage delegates to the buffer; non-blocking.
func (c *Coordinator) NextMessage() (*model.Message, bool) {
	msg, ok := c.buf.Poll()
	if !ok {
		return nil, false
	}
	return &msg, true
}

// Ack enqueues an ack command onto the owning consumer's per-consumer
// queue, looked up by id.SourceVirtualConsumerID.
func (c *Coordinator) Ack(id model.MessageId) error {
	return c.dispatch(id, true)
}

// Fail enqueues a fail command onto the owning consumer's queue.
func (c *Coordinator) Fail(id model.MessageId) error {
	return c.dispatch(id, false)
}

func (c *Coordinator) dispatch(id model.MessageId, ack bool) error {
	c.mu.RLock()
	h, ok := c.workers[model.VirtualConsumerID(id.SourceVirtualConsumerID)]
	c.mu.RUnlock()
	if !ok {
		return spouterrors.InvalidArgument("no such virtual consumer: " + id.SourceVirtualConsumerID)
	}
	select {
	case h.cmds <- command{ack: ack, id: id}:
		return nil
	default:
		return spouterrors.Transient("ack/fail command queue full for "+id.SourceVirtualConsumerID, nil)
	}
}

// Close requests every worker to stop, waits for them to drain, then
// stops the monitor.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handles := make([]*workerHandle, 0, len(c.workers))
	for _, h := range c.workers {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.vc.RequestStop()
	}
	for _, h := range handles {
		<-h.done
	}
	close(c.stopAll)
	c.monitorWG.Wait()
	return nil
}

func (c *Coordinator) monitorLoop() {
	defer c.monitorWG.Done()
	interval := c.monitorInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopAll:
			return
		case vc := <-c.pending:
			c.startWorker(vc)
		case <-ticker.C:
			c.reapCompleted()
		}
	}
}

func (c *Coordinator) startWorker(vc virtualConsumer) {
	h := &workerHandle{
		vc:     vc,
		cmds:   make(chan command, c.cmdDepth),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.mu.Lock()
	c.workers[vc.ID()] = h
	c.mu.Unlock()

	go c.runWorker(h)
}

func (c *Coordinator) runWorker(h *workerHandle) {
	defer close(h.done)
	idle := c.workerIdleSleep
	if idle <= 0 {
		idle = 10 * time.Millisecond
	}
	for {
		c.drainCommands(h)

		msg, err := h.vc.NextMessage()
		if err != nil {
			c.log.WithError(err).WithField("virtualConsumerId", h.vc.ID()).Warn("nextMessage failed")
		} else if msg != nil {
			c.buf.Put(h.vc.ID(), *msg)
		}

		if h.vc.IsStopRequested() || h.vc.Completed() {
			c.drainCommands(h)
			if err := h.vc.Close(); err != nil {
				c.log.WithError(err).WithField("virtualConsumerId", h.vc.ID()).Warn("failed to close virtual consumer")
			}
			return
		}

		if msg == nil {
			time.Sleep(idle)
		}
	}
}

func (c *Coordinator) drainCommands(h *workerHandle) {
	for {
		select {
		case cmd := <-h.cmds:
			var err error
			if cmd.ack {
				err = h.vc.Ack(&cmd.id)
			} else {
				err = h.vc.Fail(&cmd.id)
			}
			if err != nil {
				c.log.WithError(err).WithField("virtualConsumerId", h.vc.ID()).Warn("ack/fail dispatch failed")
			}
		default:
			return
		}
	}
}

func (c *Coordinator) reapCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, h := range c.workers {
		select {
		case <-h.done:
			delete(c.workers, id)
		default:
		}
	}
}

// ActiveConsumerCount reports how many VirtualConsumers currently have
// a live worker, for metrics and the admin surface.
func (c *Coordinator) ActiveConsumerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workers)
}
