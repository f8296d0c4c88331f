// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the staging pipeline.
// No per-file labels: cardinality is bounded by the state and stage sets.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts state-machine transitions by destination state.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videosentinel_pipeline_transitions_total",
		Help: "Total number of file state transitions, by destination state.",
	}, []string{"state"})

	// StageBytesTotal counts bytes moved by the download and upload stages.
	StageBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videosentinel_pipeline_stage_bytes_total",
		Help: "Total bytes copied, by pipeline stage (download/upload).",
	}, []string{"stage"})

	// BackpressurePausesTotal counts download pauses by limiting resource.
	BackpressurePausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videosentinel_pipeline_backpressure_pauses_total",
		Help: "Total number of download-stage backpressure pauses, by reason.",
	}, []string{"reason"})

	// StateSaveFailuresTotal counts best-effort state persistence failures.
	StateSaveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videosentinel_pipeline_state_save_failures_total",
		Help: "Total number of failed queue-state persistence attempts.",
	})

	// StagingBytes tracks the current staging-directory usage.
	StagingBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videosentinel_staging_bytes",
		Help: "Current size of the staging directory in bytes.",
	})

	// FilesByState tracks the number of files currently in each state.
	FilesByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "videosentinel_pipeline_files",
		Help: "Current number of files in each pipeline state.",
	}, []string{"state"})
)
