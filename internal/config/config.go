// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package config loads spoutd's configuration from a YAML file plus
// SPOUT_-prefixed environment variable overrides, per spec.md §6.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/dynamicspout/spout/internal/buffer"
	"github.com/dynamicspout/spout/internal/deserializer"
	"github.com/dynamicspout/spout/internal/retry"
	"github.com/dynamicspout/spout/internal/spouterrors"
)

// RetryConfig holds the ExponentialBackoff tuning parameters; ignored
// for the other RetryManager variants.
type RetryConfig struct {
	InitialDelayMs int
	DelayMultiplier float64
	MaxDelayMs     int
	MaxAttempts    int
}

// PersistenceConfig holds the ZooKeeper adapter's back-end specifics,
// opaque to the core per spec.md §6.
type PersistenceConfig struct {
	ZKRoot    string
	ZKServers []string
}

// CoordinatorConfig holds the SpoutCoordinator's monitor cadence.
type CoordinatorConfig struct {
	MonitorIntervalMs  int
	WorkerIdleSleepMs int
}

// KafkaConfig is the broker list/topic/partition-count needed to
// construct the sarama log-consumer-client adapter; not named in
// spec.md §6 directly but required to stand the system up end to end.
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	PartitionCount int32
}

// Config is the fully validated, in-memory configuration for one
// spoutd process.
type Config struct {
	RetryManagerClass      retry.Variant
	Retry                  RetryConfig
	PersistenceAdapterClass string
	Persistence            PersistenceConfig
	MessageBufferClass     buffer.Variant
	MessageBufferCapacity  int
	DeserializerClass      deserializer.Variant
	ConsumerIDPrefix       string
	OutputStreamID         string
	Coordinator            CoordinatorConfig
	AdminBindAddr          string
	MetricsBindAddr        string
	Kafka                  KafkaConfig
}

func defaults(v *viper.Viper) {
	v.SetDefault("retryManagerClass", string(retry.VariantFailedTuplesFirst))
	v.SetDefault("retry.initialDelayMs", 1000)
	v.SetDefault("retry.delayMultiplier", 2.0)
	v.SetDefault("retry.maxDelayMs", 60000)
	v.SetDefault("retry.maxAttempts", 10)
	v.SetDefault("persistenceAdapterClass", "zookeeper")
	v.SetDefault("persistence.zkRoot", "/spout")
	v.SetDefault("messageBufferClass", string(buffer.VariantFIFO))
	v.SetDefault("messageBuffer.capacity", 1024)
	v.SetDefault("deserializerClass", string(deserializer.VariantJSON))
	v.SetDefault("outputStreamId", "default")
	v.SetDefault("coordinator.monitorIntervalMs", 500)
	v.SetDefault("coordinator.workerIdleSleepMs", 10)
	v.SetDefault("adminBindAddr", ":8080")
	v.SetDefault("metricsBindAddr", ":9090")
}

// Load reads configFile (a YAML path; may be empty to rely entirely on
// env vars and defaults) and overlays SPOUT_-prefixed environment
// variables, then validates the required keys spec.md §6 names.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, spouterrors.ConfigMissing("failed to read config file " + configFile + ": " + err.Error())
		}
	}

	cfg := &Config{
		RetryManagerClass: retry.Variant(v.GetString("retryManagerClass")),
		Retry: RetryConfig{
			InitialDelayMs:  v.GetInt("retry.initialDelayMs"),
			DelayMultiplier: v.GetFloat64("retry.delayMultiplier"),
			MaxDelayMs:      v.GetInt("retry.maxDelayMs"),
			MaxAttempts:     v.GetInt("retry.maxAttempts"),
		},
		PersistenceAdapterClass: v.GetString("persistenceAdapterClass"),
		Persistence: PersistenceConfig{
			ZKRoot:    v.GetString("persistence.zkRoot"),
			ZKServers: v.GetStringSlice("persistence.zkServers"),
		},
		MessageBufferClass:    buffer.Variant(v.GetString("messageBufferClass")),
		MessageBufferCapacity: v.GetInt("messageBuffer.capacity"),
		DeserializerClass:     deserializer.Variant(v.GetString("deserializerClass")),
		ConsumerIDPrefix:      v.GetString("consumerIdPrefix"),
		OutputStreamID:        v.GetString("outputStreamId"),
		Coordinator: CoordinatorConfig{
			MonitorIntervalMs:  v.GetInt("coordinator.monitorIntervalMs"),
			WorkerIdleSleepMs: v.GetInt("coordinator.workerIdleSleepMs"),
		},
		AdminBindAddr:   v.GetString("adminBindAddr"),
		MetricsBindAddr: v.GetString("metricsBindAddr"),
		Kafka: KafkaConfig{
			Brokers:        v.GetStringSlice("kafka.brokers"),
			Topic:          v.GetString("kafka.topic"),
			PartitionCount: int32(v.GetInt("kafka.partitionCount")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ConsumerIDPrefix == "" {
		return spouterrors.ConfigMissing("consumerIdPrefix is required")
	}
	if c.RetryManagerClass == "" {
		return spouterrors.ConfigMissing("retryManagerClass is required")
	}
	if c.OutputStreamID == "" {
		return spouterrors.ConfigMissing("outputStreamId is required")
	}
	if c.MessageBufferCapacity <= 0 {
		return spouterrors.ConfigMissing("messageBuffer.capacity must be positive")
	}
	if len(c.Kafka.Brokers) == 0 {
		return spouterrors.ConfigMissing("kafka.brokers is required")
	}
	if c.Kafka.Topic == "" {
		return spouterrors.ConfigMissing("kafka.topic is required")
	}
	if c.PersistenceAdapterClass == "zookeeper" && len(c.Persistence.ZKServers) == 0 {
		return spouterrors.ConfigMissing("persistence.zkServers is required for the zookeeper adapter")
	}
	return nil
}
