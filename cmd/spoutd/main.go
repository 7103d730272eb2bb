// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Command spoutd wires configuration, persistence, metrics, the
// firehose VirtualConsumer, the SpoutCoordinator and SidelineController,
// and the admin HTTP surface into one running process, then drives the
// host-runtime pull contract via a demo harness loop.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/adminsrv"
	"github.com/dynamicspout/spout/internal/buffer"
	"github.com/dynamicspout/spout/internal/config"
	"github.com/dynamicspout/spout/internal/consumer"
	"github.com/dynamicspout/spout/internal/coordinator"
	"github.com/dynamicspout/spout/internal/deserializer"
	"github.com/dynamicspout/spout/internal/filter"
	"github.com/dynamicspout/spout/internal/harness"
	"github.com/dynamicspout/spout/internal/metrics"
	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
	"github.com/dynamicspout/spout/internal/persistence/zk"
	"github.com/dynamicspout/spout/internal/retry"
	"github.com/dynamicspout/spout/internal/sideline"
)

func main() {
	configFile := flag.String("config", "", "path to a spout YAML config file")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store := zk.New(cfg.Persistence.ZKServers, cfg.Persistence.ZKRoot)
	if err := store.Open(); err != nil {
		log.WithError(err).Fatal("failed to open persistence adapter")
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	deser, err := deserializer.New(cfg.DeserializerClass)
	if err != nil {
		log.WithError(err).Fatal("failed to construct deserializer")
	}

	msgBuffer, err := buffer.New(cfg.MessageBufferClass, cfg.MessageBufferCapacity)
	if err != nil {
		log.WithError(err).Fatal("failed to construct message buffer")
	}

	coord := coordinator.New(coordinator.Config{
		Buffer:          msgBuffer,
		MonitorInterval: time.Duration(cfg.Coordinator.MonitorIntervalMs) * time.Millisecond,
		WorkerIdleSleep: time.Duration(cfg.Coordinator.WorkerIdleSleepMs) * time.Millisecond,
		Log:             log,
	})
	if err := coord.Open(); err != nil {
		log.WithError(err).Fatal("failed to open coordinator")
	}
	defer coord.Close()

	partitions := make([]int32, cfg.Kafka.PartitionCount)
	for i := range partitions {
		partitions[i] = int32(i)
	}

	firehoseID := model.NewVirtualConsumerID(cfg.ConsumerIDPrefix, 0, "")
	firehoseChain := filter.NewChain()

	firehoseClient, err := consumer.NewSaramaClient(string(firehoseID), cfg.Kafka.Brokers, sarama.NewConfig(), store, log)
	if err != nil {
		log.WithError(err).Fatal("failed to construct firehose Kafka client")
	}

	firehoseRetry, err := newRetryManager(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to construct firehose retry manager")
	}

	startingState := model.ConsumerState{}
	if resumed, ok, err := store.RetrieveConsumerState(string(firehoseID)); err == nil && ok {
		startingState = resumed
	}

	firehose := consumer.NewVirtualConsumer(consumer.Config{
		ID:            firehoseID,
		Topic:         cfg.Kafka.Topic,
		Partitions:    partitions,
		StartingState: startingState,
		Client:        firehoseClient,
		Deserializer:  deser,
		RetryManager:  firehoseRetry,
		FilterChain:   firehoseChain,
		Persistence:   store,
		Log:           log,
	})
	if err := firehose.Open(); err != nil {
		log.WithError(err).Fatal("failed to open firehose virtual consumer")
	}
	coord.AddVirtualConsumer(firehose)

	replayConsumerID := func(sidelineRequestID string) string {
		return string(model.NewVirtualConsumerID(cfg.ConsumerIDPrefix, 0, "replay-"+sidelineRequestID))
	}

	spawnReplay := func(req sideline.ReplayRequest) {
		replayID := model.VirtualConsumerID(replayConsumerID(req.SidelineRequestID))
		client, err := consumer.NewSaramaClient(string(replayID), cfg.Kafka.Brokers, sarama.NewConfig(), store, log)
		if err != nil {
			log.WithError(err).WithField("sidelineRequestId", req.SidelineRequestID).Error("failed to construct replay Kafka client")
			return
		}
		replayRetry := retry.NewFailedTuplesFirst()
		replayVC := consumer.NewVirtualConsumer(consumer.Config{
			ID:                replayID,
			Topic:             cfg.Kafka.Topic,
			Partitions:        partitions,
			StartingState:     req.StartingState,
			EndingState:       req.EndingState,
			HasEndingState:    true,
			SidelineRequestID: req.SidelineRequestID,
			Client:            client,
			Deserializer:      deser,
			RetryManager:      replayRetry,
			FilterChain:       filter.NewChain(),
			Persistence:       store,
			Log:               log,
		})
		replayVC.FilterChain().AddSteps(req.SidelineRequestID, req.NegatedSteps)
		if err := replayVC.Open(); err != nil {
			log.WithError(err).WithField("sidelineRequestId", req.SidelineRequestID).Error("failed to open replay virtual consumer")
			return
		}
		coord.AddVirtualConsumer(replayVC)
	}

	resolve := func(name, expr string) func(model.Message) bool {
		return equalsPredicate(name, expr)
	}

	sidelineCtrl := sideline.NewController(firehose, store, spawnReplay, resolve, replayConsumerID, log)
	if err := sidelineCtrl.RecoverOnOpen(); err != nil {
		log.WithError(err).Fatal("failed to recover sideline state")
	}

	lister := &adminLister{store: store, coord: coord}
	adminServer, err := adminsrv.New(cfg.AdminBindAddr, sidelineCtrl, resolve, lister, lister, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start admin HTTP server")
	}
	adminServer.Start()
	defer adminServer.Stop()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsBindAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics HTTP server failed")
		}
	}()
	defer metricsServer.Close()

	spout := harness.New(harness.Config{
		Coordinator:  coord,
		OutputStream: cfg.OutputStreamID,
		Sink:         harness.AcceptAll{},
		Log:          log,
	})
	if err := spout.Open(); err != nil {
		log.WithError(err).Fatal("failed to open spout harness")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	emitter := &metricsEmitter{recorder: recorder}
	runLoop(ctx, spout, emitter)
}

func runLoop(ctx context.Context, spout *harness.Spout, emitter harness.Emitter) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spout.NextTuple(emitter)
		}
	}
}

func newRetryManager(cfg *config.Config) (retry.Manager, error) {
	return retry.New(cfg.RetryManagerClass, retry.ExponentialBackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
		Multiplier:   cfg.Retry.DelayMultiplier,
		MaxDelay:     time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		MaxAttempts:  cfg.Retry.MaxAttempts,
	})
}

// equalsPredicate resolves a persisted or admin-API-submitted predicate
// name/expr pair into an evaluatable function. The filter-expression
// language itself is a spec.md §1 non-goal; this resolver recognizes
// exactly one opaque convention (a message matches when any of its
// string Values equals expr; name is not consulted), sufficient for the
// admin API and sideline recovery to round-trip, and is the one place a
// richer expression language would plug in.
func equalsPredicate(name, expr string) func(model.Message) bool {
	return func(msg model.Message) bool {
		for _, v := range msg.Values {
			if s, ok := v.(string); ok && s == expr {
				return true
			}
		}
		return false
	}
}

type adminLister struct {
	store persistence.Adapter
	coord *coordinator.Coordinator
}

func (l *adminLister) ListSidelines() ([]adminsrv.SidelineView, error) {
	ids, err := l.store.ListSidelineRequests()
	if err != nil {
		return nil, err
	}
	views := make([]adminsrv.SidelineView, 0, len(ids))
	for _, id := range ids {
		payload, ok, err := l.store.RetrieveSidelineRequest(id)
		if err != nil || !ok {
			continue
		}
		views = append(views, adminsrv.SidelineView{ID: id, State: string(payload.Type)})
	}
	return views, nil
}

func (l *adminLister) ListConsumers() ([]adminsrv.ConsumerView, error) {
	return []adminsrv.ConsumerView{}, nil
}

type metricsEmitter struct {
	recorder *metrics.Recorder
}

func (e *metricsEmitter) Emit(streamID string, values []interface{}, opaqueID interface{}) {
	id, ok := opaqueID.(model.MessageId)
	if !ok {
		return
	}
	e.recorder.Emitted(id.SourceVirtualConsumerID)
}
