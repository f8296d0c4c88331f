// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestTransitionsTotalRegistered(t *testing.T) {
	TransitionsTotal.WithLabelValues("complete").Inc()

	mf := gather(t, "videosentinel_pipeline_transitions_total")
	require.NotNil(t, mf)
	require.Equal(t, dto.MetricType_COUNTER, mf.GetType())

	var found bool
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "state" && lp.GetValue() == "complete" {
				found = true
				require.GreaterOrEqual(t, m.GetCounter().GetValue(), 1.0)
			}
		}
	}
	require.True(t, found)
}

func TestStagingBytesGauge(t *testing.T) {
	StagingBytes.Set(4096)

	mf := gather(t, "videosentinel_staging_bytes")
	require.NotNil(t, mf)
	require.Equal(t, dto.MetricType_GAUGE, mf.GetType())
	require.Len(t, mf.GetMetric(), 1)
	require.Equal(t, 4096.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestStageBytesTotalAccumulates(t *testing.T) {
	StageBytesTotal.WithLabelValues("download").Add(100)
	StageBytesTotal.WithLabelValues("download").Add(50)

	mf := gather(t, "videosentinel_pipeline_stage_bytes_total")
	require.NotNil(t, mf)
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "stage" && lp.GetValue() == "download" {
				require.GreaterOrEqual(t, m.GetCounter().GetValue(), 150.0)
			}
		}
	}
}
