// Package metrics holds the prometheus collectors for the clip workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeStale marks an upload that finished after a newer selection.
	OutcomeStale = "stale"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipdesk_uploads_total",
		Help: "Source uploads by outcome",
	}, []string{"outcome"}) // outcome=success|failure|stale

	trimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipdesk_trims_total",
		Help: "Trim submissions by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	trimmedClipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipdesk_trimmed_clips_total",
		Help: "Clips returned by successful trims",
	})

	trimDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipdesk_trim_duration_seconds",
		Help:    "Time spent waiting on the remote trim request",
		Buckets: prometheus.DefBuckets,
	})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipdesk_queue_length",
		Help: "Clip ranges currently queued",
	})

	activePreviews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipdesk_active_previews",
		Help: "Preview handles acquired and not yet released",
	})

	assistantRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipdesk_assistant_requests_total",
		Help: "Chat and story requests by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=chat|story
)

func IncUpload(outcome string) { uploadsTotal.WithLabelValues(outcome).Inc() }

// RecordTrim counts one trim attempt. clips is only added on success.
func RecordTrim(outcome string, clips int, seconds float64) {
	trimsTotal.WithLabelValues(outcome).Inc()
	trimDurationSeconds.Observe(seconds)
	if outcome == OutcomeSuccess {
		trimmedClipsTotal.Add(float64(clips))
	}
}

func RecordQueueLength(n int) { queueLength.Set(float64(n)) }

func IncActivePreviews() { activePreviews.Inc() }
func DecActivePreviews() { activePreviews.Dec() }

func IncAssistantRequest(kind, outcome string) {
	assistantRequestsTotal.WithLabelValues(kind, outcome).Inc()
}
