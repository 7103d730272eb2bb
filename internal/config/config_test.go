// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamicspout/spout/internal/spouterrors"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_AppliesDefaultsAndValidates(t *testing.T) {
	path := writeYAML(t, `
consumerIdPrefix: orders-spout
outputStreamId: default
kafka:
  brokers: ["localhost:9092"]
  topic: orders
persistence:
  zkServers: ["localhost:2181"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, "FailedTuplesFirst", cfg.RetryManagerClass)
	assert.Equal(t, 1024, cfg.MessageBufferCapacity)
	assert.Equal(t, 500, cfg.Coordinator.MonitorIntervalMs)
	assert.Equal(t, "orders-spout", cfg.ConsumerIDPrefix)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_MissingConsumerIDPrefixIsConfigMissing(t *testing.T) {
	path := writeYAML(t, `
outputStreamId: default
kafka:
  brokers: ["localhost:9092"]
  topic: orders
persistence:
  zkServers: ["localhost:2181"]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, spouterrors.Is(err, spouterrors.KindConfigMissing))
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeYAML(t, `
consumerIdPrefix: orders-spout
outputStreamId: default
kafka:
  brokers: ["localhost:9092"]
  topic: orders
persistence:
  zkServers: ["localhost:2181"]
`)

	t.Setenv("SPOUT_MESSAGEBUFFER_CAPACITY", "2048")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.MessageBufferCapacity)
}
