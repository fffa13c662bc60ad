package queue

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	jobsTotal   *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pheidi",
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Count of consumed jobs by queue and outcome",
		}, []string{"queue", "outcome"})
		if err := prometheus.Register(jobsTotal); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					jobsTotal = existing
				}
			}
		}
	})
}

func recordJob(queue, outcome string) {
	initMetrics()
	// Pop keys include the prefix; strip it so labels stay stable.
	if idx := strings.LastIndex(queue, ":queue:"); idx >= 0 {
		queue = queue[idx+len(":queue:"):]
	}
	jobsTotal.With(prometheus.Labels{"queue": queue, "outcome": outcome}).Inc()
}
