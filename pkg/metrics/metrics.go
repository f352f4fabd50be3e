package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zenshin"

// Metrics holds all Prometheus collectors for the server and worker.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Workspace metrics
	WorkspacesCreated   *prometheus.CounterVec
	InvitationsCreated  *prometheus.CounterVec
	InvitationsAccepted *prometheus.CounterVec
	InvitationsPurged   prometheus.Counter

	// Delivery metrics
	EmailsSent      *prometheus.CounterVec
	ExportsEnqueued prometheus.Counter
	ExportsFinished *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WorkspacesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workspaces_created_total",
				Help:      "Workspaces created, by origin (explicit or first login)",
			},
			[]string{"origin"},
		),
		InvitationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invitations_created_total",
				Help:      "Invitations issued, by granted role",
			},
			[]string{"role"},
		),
		InvitationsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invitations_accepted_total",
				Help:      "Invitation join attempts, by result",
			},
			[]string{"result"},
		),
		InvitationsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invitations_purged_total",
				Help:      "Expired invitations removed by housekeeping",
			},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Outbound emails, by status",
			},
			[]string{"status"},
		),
		ExportsEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chart_exports_enqueued_total",
				Help:      "Chart export jobs enqueued",
			},
		),
		ExportsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chart_exports_finished_total",
				Help:      "Chart export jobs processed, by status",
			},
			[]string{"status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WorkspacesCreated,
		m.InvitationsCreated,
		m.InvitationsAccepted,
		m.InvitationsPurged,
		m.EmailsSent,
		m.ExportsEnqueued,
		m.ExportsFinished,
	)

	return m
}

// NewNop returns metrics on a private registry, for tests and tools that
// never expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. Routes are labelled with
// the chi pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
