// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Collector, labels prometheus.Labels) float64 {
	t.Helper()
	vec, ok := c.(*prometheus.CounterVec)
	require.True(t, ok)
	counter, err := vec.GetMetricWith(labels)
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecorder_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Emitted("vc-1")
	r.Emitted("vc-1")
	r.Acked("vc-1")
	r.Failed("vc-1")
	r.Abandoned("vc-1")

	assert.Equal(t, float64(2), counterValue(t, r.emitted, prometheus.Labels{"virtual_consumer_id": "vc-1"}))
	assert.Equal(t, float64(1), counterValue(t, r.acked, prometheus.Labels{"virtual_consumer_id": "vc-1"}))
	assert.Equal(t, float64(1), counterValue(t, r.failed, prometheus.Labels{"virtual_consumer_id": "vc-1"}))
	assert.Equal(t, float64(1), counterValue(t, r.abandoned, prometheus.Labels{"virtual_consumer_id": "vc-1"}))
}

func TestRecorder_Gauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.BufferDepth(42)
	r.ActiveSidelines(3)
	r.CommitPoint("vc-1", "orders", 0, 999)

	assert.Equal(t, float64(42), gaugeValue(t, r.bufferDepth))
	assert.Equal(t, float64(3), gaugeValue(t, r.activeSidelines))

	gauge, err := r.commitPoint.GetMetricWith(prometheus.Labels{
		"virtual_consumer_id": "vc-1",
		"topic":               "orders",
		"partition":           "0",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(999), gaugeValue(t, gauge))
}
