package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeError   = "error"
)

// PrometheusObserver mirrors recorded results into Prometheus collectors.
type PrometheusObserver struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver creates an observer and registers its collectors.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surge_requests_total",
			Help: "Requests issued by the load generator, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surge_request_duration_seconds",
			Help:    "Response time of requests that received a response.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"code"}),
	}

	for _, c := range []prometheus.Collector{o.requests, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ObserveResult implements Observer.
func (o *PrometheusObserver) ObserveResult(r Result) {
	switch {
	case r.Success():
		o.requests.WithLabelValues(outcomeSuccess).Inc()
	case r.Failed():
		o.requests.WithLabelValues(outcomeError).Inc()
		return
	default:
		o.requests.WithLabelValues(outcomeFailed).Inc()
	}
	o.duration.WithLabelValues(r.Code).Observe(r.Elapsed.Seconds())
}
