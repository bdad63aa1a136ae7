package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/linkcap/core"
)

// Evaluation sources.
const (
	SourceCLI  = "cli"
	SourceGRPC = "grpc"
)

// Evaluation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNonFinite = "non_finite"
	OutcomeError     = "error"
)

// Collector bundles the Prometheus metrics for capacity evaluations and
// the gRPC surface.
type Collector struct {
	gatherer prometheus.Gatherer

	Evaluations     *prometheus.CounterVec
	LastCapacityBps prometheus.Gauge
	LastSNRDB       prometheus.Gauge

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewCollector registers linkcap metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	evaluations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcap_evaluations_total",
		Help: "Total number of capacity evaluations, labeled by source and outcome.",
	}, []string{"source", "outcome"}), "linkcap_evaluations_total")
	if err != nil {
		return nil, err
	}

	lastCapacity, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkcap_last_capacity_bps",
		Help: "Floored Shannon-Hartley capacity of the most recent successful evaluation.",
	}), "linkcap_last_capacity_bps")
	if err != nil {
		return nil, err
	}

	lastSNR, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "linkcap_last_snr_db",
		Help: "Signal-to-noise ratio in dB of the most recent successful evaluation.",
	}), "linkcap_last_snr_db")
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcap_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "linkcap_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkcap_rpc_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "linkcap_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Evaluations:     evaluations,
		LastCapacityBps: lastCapacity,
		LastSNRDB:       lastSNR,
		RPCRequests:     requests,
		RPCDurations:    durations,
	}, nil
}

// ObserveEvaluation records the outcome of one evaluation. A nil
// collector is a no-op.
func (c *Collector) ObserveEvaluation(source string, res core.LinkResult, err error) {
	if c == nil {
		return
	}
	c.Evaluations.WithLabelValues(source, Outcome(err)).Inc()
	if err != nil {
		return
	}
	c.LastCapacityBps.Set(res.MaxBitrateBps)
	c.LastSNRDB.Set(res.SNRDB)
}

// Outcome classifies an evaluation error into a metric label.
func Outcome(err error) string {
	var verr *core.ValidationError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.Is(err, core.ErrNonFinite):
		return OutcomeNonFinite
	default:
		return OutcomeError
	}
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *Collector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
