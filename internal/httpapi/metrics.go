package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	topicsExtracted prometheus.Counter
	tasksGenerated  prometheus.Counter
	extractDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planner",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		topicsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "topics_extracted_total",
			Help:      "Topics returned by syllabus extraction.",
		}),
		tasksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "tasks_generated_total",
			Help:      "Scheduled tasks produced by the generator.",
		}),
		extractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planner",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting topics from a document.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.requests,
		m.latency,
		m.topicsExtracted,
		m.tasksGenerated,
		m.extractDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// instrument records request count and latency under the route pattern.
func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
