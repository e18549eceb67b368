package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fuelhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fuelhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	couponRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelhub",
			Subsystem: "coupons",
			Name:      "redemptions_total",
			Help:      "Total number of coupon redemption attempts.",
		},
		[]string{"result"},
	)

	balanceDeltas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelhub",
			Subsystem: "ledger",
			Name:      "balance_deltas_total",
			Help:      "Total number of applied balance deltas.",
		},
		[]string{"fuel_kind"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fuelhub",
			Subsystem: "transactions",
			Name:      "settlements_total",
			Help:      "Total number of settled transactions.",
		},
		[]string{"kind", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		couponRedemptions,
		balanceDeltas,
		settlements,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCouponRedemption counts a redemption attempt.
func RecordCouponRedemption(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	couponRedemptions.WithLabelValues(result).Inc()
}

// RecordBalanceDelta counts an applied balance delta.
func RecordBalanceDelta(fuelKind string) {
	if fuelKind == "" {
		fuelKind = "unknown"
	}
	balanceDeltas.WithLabelValues(fuelKind).Inc()
}

// RecordSettlement counts a settlement attempt per transaction kind.
func RecordSettlement(kind string, success bool) {
	if kind == "" {
		kind = "unknown"
	}
	result := "false"
	if success {
		result = "true"
	}
	settlements.WithLabelValues(kind, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses entity ids so the path label stays low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	resource := parts[1]
	switch len(parts) {
	case 2:
		return "/api/" + resource
	case 3:
		// /api/coupons/redeem and /api/vehicles/pending are fixed routes;
		// everything else in the third segment is an id.
		switch parts[2] {
		case "redeem", "pending", "me", "stats", "fuel-purchase", "transfer", "top-up":
			return "/api/" + resource + "/" + parts[2]
		default:
			return "/api/" + resource + "/:id"
		}
	default:
		return "/api/" + resource + "/:id/" + parts[len(parts)-1]
	}
}
