package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ErnestIssa/peak-mode/pkg/metrics"
)

const ProfileCookie = "pm_profile"

type ctxKey int

const profileKey ctxKey = iota

// ProfileMiddleware identifies the browser profile by cookie, issuing a new one
// when the cookie is missing or malformed.
func ProfileMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var profileID string
			if c, err := r.Cookie(ProfileCookie); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					profileID = c.Value
				}
			}
			if profileID == "" {
				profileID = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     ProfileCookie,
					Value:    profileID,
					Path:     "/",
					MaxAge:   int((365 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), profileKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func profileFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(profileKey).(string); ok {
		return id
	}
	return ""
}

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = r.Method + " " + rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

// RequestLogger writes one slog record per request. 5xx responses log at error
// level and 4xx at warn.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				}
				log.LogAttrs(r.Context(), level, "http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("remote_addr", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
