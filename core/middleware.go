package core

import (
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs HTTP requests and responses with structured logging.
// In development mode (devMode=true), it logs all requests.
// In production mode (devMode=false), it only logs non-2xx responses and
// slow requests (>1s).
func LoggingMiddleware(logger Logger, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			shouldLog := devMode ||
				wrapped.statusCode >= 400 ||
				duration > time.Second

			if shouldLog && logger != nil {
				logData := map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      wrapped.statusCode,
					"duration_ms": duration.Milliseconds(),
					"remote_addr": r.RemoteAddr,
					"user_agent":  r.UserAgent(),
				}

				if r.URL.RawQuery != "" {
					logData["query"] = r.URL.RawQuery
				}

				if r.ContentLength > 0 {
					logData["content_length"] = r.ContentLength
				}

				if wrapped.statusCode >= 500 {
					logger.Error("HTTP request error", logData)
				} else if wrapped.statusCode >= 400 {
					logger.Warn("HTTP request client error", logData)
				} else if duration > time.Second {
					logger.Warn("HTTP request slow", logData)
				} else {
					logger.Info("HTTP request", logData)
				}
			}
		})
	}
}

// AuthGateMiddleware enforces the path-based access-control gate:
// requests under the admin prefix without a recognized auth token are
// redirected to the login path, and requests to the login path while a
// token is already present are redirected back to the admin prefix.
//
// Only token presence is checked here; signature and expiry verification
// belong to the backend.
func AuthGateMiddleware(cfg AuthConfig, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cfg)

			switch {
			case strings.HasPrefix(r.URL.Path, cfg.AdminPathPrefix) && token == "":
				if logger != nil {
					logger.Debug("Admin request without token, redirecting to login", map[string]interface{}{
						"path": r.URL.Path,
					})
				}
				http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
				return
			case r.URL.Path == cfg.LoginPath && token != "":
				if logger != nil {
					logger.Debug("Login request with token, redirecting to admin", map[string]interface{}{
						"path": r.URL.Path,
					})
				}
				http.Redirect(w, r, cfg.AdminPathPrefix, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the auth token from the configured header (stripping
// an optional Bearer prefix) or cookie.
func extractToken(r *http.Request, cfg AuthConfig) string {
	if v := r.Header.Get(cfg.TokenHeader); v != "" {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer"))
	}
	if cfg.TokenCookie != "" {
		if c, err := r.Cookie(cfg.TokenCookie); err == nil {
			return c.Value
		}
	}
	return ""
}
