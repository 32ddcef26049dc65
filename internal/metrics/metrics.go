package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	// RPCRequests counts unary calls by method and status code.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friender_rpc_requests_total",
		Help: "Total number of unary RPCs by method and code",
	}, []string{"method", "code"})

	// RPCLatency records unary call latency by method.
	RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "friender_rpc_latency_seconds",
		Help:    "Unary RPC latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// LikesRecorded counts like edges written.
	LikesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "friender_likes_recorded_total",
		Help: "Total number of likes recorded",
	})

	// DislikesRecorded counts dislike edges written.
	DislikesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "friender_dislikes_recorded_total",
		Help: "Total number of dislikes recorded",
	})

	// MatchesCreated counts matches by how they came about: "reciprocal" or "explicit".
	MatchesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friender_matches_created_total",
		Help: "Total number of matches created",
	}, []string{"source"})

	// MessagesSent counts persisted messages.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "friender_messages_sent_total",
		Help: "Total number of messages sent",
	})

	// MessagesRead counts null -> timestamp read transitions.
	MessagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "friender_messages_read_total",
		Help: "Total number of messages marked read",
	})

	// CacheErrors counts Redis failures by operation; the DB answer is used instead.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friender_cache_errors_total",
		Help: "Total number of cache errors by operation",
	}, []string{"operation"})
)

// UnaryInterceptor records request count and latency for every unary call.
func UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		RPCLatency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		RPCRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
