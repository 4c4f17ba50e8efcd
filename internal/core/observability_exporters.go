package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder publishes per-operation counters and latency
// histograms. It fulfills MetricsRecorder.
type PrometheusMetricsRecorder struct {
	results   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
// A nil registerer uses a private registry, which keeps tests independent.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	rec := &PrometheusMetricsRecorder{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "speciesdesk",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Species gateway operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "speciesdesk",
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Latency of species gateway operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.results, rec.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.results.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// JSONTraceEntry represents a serialized trace span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// maxRetainedSpans bounds the spans kept for Entries; older ones are dropped.
const maxRetainedSpans = 1024

// JSONTraceTracer serializes spans to a writer and retains the most recent
// ones for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer that writes spans as JSON lines to w.
// w may be nil, in which case spans are only retained.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{enc: enc}
}

// Entries returns a copy of all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	status := "success"
	var errMsg string
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     status,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		Error:      errMsg,
		StartedAt:  s.started,
		EndedAt:    ended,
	}

	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if over := len(s.tracer.entries) - maxRetainedSpans; over > 0 {
		s.tracer.entries = append(s.tracer.entries[:0], s.tracer.entries[over:]...)
	}
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
