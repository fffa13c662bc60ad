package dispatch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CodeNow/pheidi-sub000/internal/gateway/github"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
)

var (
	metricsOnce   sync.Once
	gatewayErrors *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		gatewayErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pheidi",
			Subsystem: "dispatch",
			Name:      "gateway_errors_total",
			Help:      "Classified gateway errors consumed at the dispatch boundary",
		}, []string{"kind"})
		if err := prometheus.Register(gatewayErrors); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					gatewayErrors = existing
				}
			}
		}
	})
}

// consumeGatewayError is the single place classified gateway errors are
// turned into queue outcomes. Access and precondition failures stop the job
// quietly; rate limits stop it but are flagged for operators; everything
// else propagates for broker-level retry.
func (s Service) consumeGatewayError(err error, logFields ...any) error {
	if err == nil {
		return nil
	}
	kind, ok := github.KindOf(err)
	if !ok {
		return err
	}
	initMetrics()
	gatewayErrors.With(prometheus.Labels{"kind": string(kind)}).Inc()

	fields := append([]any{"kind", string(kind), "error", err}, logFields...)
	if kind == github.KindRateLimited {
		s.logger.Error("github rate limited, stopping job", fields...)
	} else {
		s.logger.Warn("stopping job on gateway error", fields...)
	}
	return queue.Permanent(err)
}
