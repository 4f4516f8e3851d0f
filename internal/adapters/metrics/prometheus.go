// Package metrics exports flash store activity as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"flashbox/internal/application/flash"
)

const namespace = "flashbox"

// PrometheusObserver counts store events.
type PrometheusObserver struct {
	appended  *prometheus.CounterVec
	retrieved *prometheus.CounterVec
	clears    prometheus.Counter
	renders   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ flash.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them on reg.
// PRE: reg has no flashbox collectors registered yet
// POST: Returns an observer whose collectors are registered on reg
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Flash messages appended, by kind.",
		}, []string{"kind"}),
		retrieved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_retrieved_total",
			Help:      "Flash messages returned by retrieval, by mode (peek or once).",
		}, []string{"mode"}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clears_total",
			Help:      "Whole message lists deleted.",
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render calls that produced output, by template.",
		}, []string{"template"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Flash store operation latency.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{o.appended, o.retrieved, o.clears, o.renders, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *PrometheusObserver) OnEvent(ctx context.Context, e flash.Event) {
	switch e.Type {
	case flash.EventAppend:
		o.appended.WithLabelValues(string(e.Kind)).Add(float64(e.Count))
	case flash.EventRetrieve:
		mode := "peek"
		if e.Destructive {
			mode = "once"
		}
		o.retrieved.WithLabelValues(mode).Add(float64(e.Count))
	case flash.EventClear:
		o.clears.Inc()
	case flash.EventRender:
		o.renders.WithLabelValues(e.Template).Inc()
	default:
		return
	}
	o.duration.WithLabelValues(string(e.Type)).Observe(e.Duration.Seconds())
}
