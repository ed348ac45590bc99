package httpapi

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/syssam/ugc-subgraph/internal/metrics"
	"github.com/syssam/ugc-subgraph/internal/requestctx"
	"github.com/syssam/ugc-subgraph/internal/review"
)

const correlationIDHeader = "X-Correlation-Id"

// CorrelationID attaches a correlation id to every request, generating
// one when the caller did not supply it, matching the teacher's
// RequestID middleware.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(correlationIDHeader, id)
			rc := requestctx.From(r.Context())
			rc.CorrelationID = id
			next.ServeHTTP(w, r.WithContext(requestctx.With(r.Context(), rc)))
		})
	}
}

// subjectClaims is the minimal claim set this subgraph reads. The router
// in front of this service already validated the token's signature
// (§1 Non-goals: AuthN is out of scope); this middleware only decodes
// the claims it was handed.
type subjectClaims struct {
	jwt.RegisteredClaims
	Privileged bool `json:"privileged"`
}

// PrincipalFromJWT extracts a review.Principal from the bearer token's
// claims without verifying its signature — the upstream router already
// did that (§1 Non-goals: AuthN validation is out of scope). A missing
// or unparsable token yields the anonymous principal rather than a 401,
// since read access does not require authentication. issuer mirrors
// auth.jwt.issuer; a token whose iss claim is present and differs from it
// also yields the anonymous principal. Nothing is logged on a mismatch.
func PrincipalFromJWT(issuer string) func(http.Handler) http.Handler {
	parser := jwt.NewParser()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := requestctx.From(r.Context())
			rc.Principal = principalFromHeader(parser, issuer, r.Header.Get("Authorization"))
			next.ServeHTTP(w, r.WithContext(requestctx.With(r.Context(), rc)))
		})
	}
}

func principalFromHeader(parser *jwt.Parser, issuer, header string) review.Principal {
	const bearerPrefix = "Bearer "
	if len(header) <= len(bearerPrefix) || header[:len(bearerPrefix)] != bearerPrefix {
		return review.Principal{Anonymous: true}
	}
	token := header[len(bearerPrefix):]

	var claims subjectClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return review.Principal{Anonymous: true}
	}
	if issuer != "" && claims.Issuer != "" && claims.Issuer != issuer {
		return review.Principal{Anonymous: true}
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return review.Principal{Anonymous: true}
	}
	return review.Principal{UserID: id, Privileged: claims.Privileged}
}

// StructuredLog logs one line per request in the teacher's
// status/latency/correlation-id shape.
func StructuredLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			rc := requestctx.From(r.Context())
			level := slog.LevelInfo
			if rec.status >= 500 {
				level = slog.LevelError
			} else if rec.status >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_request_finished",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.String("correlation_id", rc.CorrelationID),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// PanicRecovery recovers from a panic in a downstream handler, logs it,
// and returns a generic 500 rather than crashing the process.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error("panic_recovered", slog.Any("error", rec), slog.String("stack", string(buf[:n])))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Backpressure implements §5's inbound concurrency gate: a token-bucket
// limiter sized from server.max_inflight, rejecting with 429 before the
// request reaches C6. maxInflight <= 0 disables the gate.
func Backpressure(maxInflight int, reg *metrics.Registry) func(http.Handler) http.Handler {
	if maxInflight <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(maxInflight), maxInflight)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if reg != nil {
					reg.RateLimitedRequests.Inc()
				}
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			if reg != nil {
				reg.InflightRequests.Inc()
				defer reg.InflightRequests.Dec()
			}
			next.ServeHTTP(w, r)
		})
	}
}
