package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AnalyzerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_calls_total",
			Help: "Upstream analyzer calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	AnalyzerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_call_duration_seconds",
			Help:    "Upstream analyzer call duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
		[]string{"source"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Generative model calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Generative model call duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 240},
		},
		[]string{"operation"},
	)

	ResearchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_runs_total",
			Help: "Research runs by terminal status",
		},
		[]string{"status"},
	)
	ResearchRunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_runs_in_flight",
			Help: "Research runs currently executing",
		},
	)
	QuestionsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_generated_total",
			Help: "Questions produced by category and phase (synthesis or refinement)",
		},
		[]string{"category", "phase"},
	)
)

var registerOnce sync.Once

// InitMetrics registers the collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AnalyzerCallsTotal,
			AnalyzerCallDuration,
			LLMRequestsTotal,
			LLMRequestDuration,
			ResearchRunsTotal,
			ResearchRunsInFlight,
			QuestionsGeneratedTotal,
		)
	})
}

// ObserveAnalyzerCall records one upstream call.
func ObserveAnalyzerCall(source, outcome string, d time.Duration) {
	AnalyzerCallsTotal.WithLabelValues(source, outcome).Inc()
	AnalyzerCallDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveLLMCall records one generative call.
func ObserveLLMCall(operation string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	LLMRequestsTotal.WithLabelValues(operation, outcome).Inc()
	LLMRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// AddQuestions counts questions produced for a category.
func AddQuestions(category, phase string, n int) {
	if n > 0 {
		QuestionsGeneratedTotal.WithLabelValues(category, phase).Add(float64(n))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
