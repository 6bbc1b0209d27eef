package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	"github.com/marfateam/rcalendar/pkg/observability"
)

type appKey struct{}

// withApp binds the authenticated app label to the context.
func withApp(ctx context.Context, app string) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

// appFrom returns the app label bound by the authentication middleware.
func appFrom(ctx context.Context) string {
	app, _ := ctx.Value(appKey{}).(string)
	return app
}

// authenticate resolves the Api-Key header to an app label and stores
// it on the context. A missing, malformed, unknown or revoked key is
// rejected without distinguishing which it was.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := uuid.Parse(r.Header.Get("Api-Key"))
		if err != nil {
			writePermissionDenied(w)
			return
		}
		app, err := s.apiKeys.FindApp(r.Context(), key)
		if err != nil {
			s.logger.Error("api key lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, detail(msgInternalError))
			return
		}
		if app == "" {
			writePermissionDenied(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withApp(r.Context(), app)))
	})
}

// traceContext mints a correlation id per request and mirrors the
// router's request id into the logging context. Command handlers pick
// the correlation id up when staging outbox messages, so a broker
// consumer can tie an event back to the request that raised it.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithCorrelationID(r.Context(), "")
		ctx = observability.WithRequestID(ctx, chimiddleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bindEventSink gives every request its own event sink so the handlers
// can return the domain events the request raised. Once the handler is
// done the collected events feed the domain counters.
func bindEventSink(metrics observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sink := caldomain.NewSink()
			next.ServeHTTP(w, r.WithContext(caldomain.WithSink(r.Context(), sink)))

			for _, e := range sink.Events() {
				metrics.Counter(observability.MetricEventsEmitted, 1, observability.T("kind", e.Kind))
				switch e.Kind {
				case caldomain.EventCreateInterval:
					metrics.Counter(observability.MetricIntervalsCreated, 1)
				case caldomain.EventDeleteInterval:
					metrics.Counter(observability.MetricIntervalsDeleted, 1)
				case caldomain.EventApplySchedule:
					metrics.Counter(observability.MetricSchedulesApplied, 1)
				}
			}
		})
	}
}

// recordMetrics counts requests and latency under the matched route
// pattern rather than the raw path, so ids do not fan the series out.
func recordMetrics(metrics observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			tags := []observability.Tag{
				observability.T("method", r.Method),
				observability.T("route", route),
			}
			metrics.Counter(observability.MetricOperationTotal, 1, tags...)
			metrics.Timing(observability.MetricOperationDuration, time.Since(start), tags...)
			if ww.Status() >= http.StatusInternalServerError {
				metrics.Counter(observability.MetricOperationErrors, 1, tags...)
			}
		})
	}
}

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
