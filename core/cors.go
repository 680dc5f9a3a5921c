package core

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSMiddleware adds CORS headers for browser clients of the
// storefront API and answers preflight requests. Origin patterns come
// from CORSConfig and may use "*", wildcard subdomains
// ("https://*.example.com") and wildcard ports ("http://localhost:*").
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if origin := r.Header.Get("Origin"); originMatches(origin, config.AllowedOrigins) {
				setCORSHeaders(w.Header(), origin, config)
			}

			// Preflight requests end here, headers only.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setCORSHeaders(h http.Header, origin string, config *CORSConfig) {
	h.Set("Access-Control-Allow-Origin", origin)
	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
}

// originMatches reports whether origin matches one of the configured
// patterns. Same-origin requests carry no Origin header and never
// match; they need no CORS headers.
func originMatches(origin string, patterns []string) bool {
	if origin == "" {
		return false
	}
	for _, pattern := range patterns {
		switch {
		case pattern == "*" || pattern == origin:
			return true
		case strings.Contains(pattern, "*."):
			if matchWildcardHost(origin, pattern) {
				return true
			}
		case strings.HasSuffix(pattern, ":*"):
			base := strings.TrimSuffix(pattern, ":*")
			if strings.HasPrefix(origin, base+":") {
				return true
			}
		}
	}
	return false
}

// matchWildcardHost handles patterns like "https://*.example.com". The
// wildcard must consume at least one character so the bare root domain
// does not match.
func matchWildcardHost(origin, pattern string) bool {
	idx := strings.Index(pattern, "*.")
	prefix, suffix := pattern[:idx], pattern[idx+1:]
	if !strings.HasPrefix(origin, prefix) || !strings.HasSuffix(origin, suffix) {
		return false
	}
	return len(origin) > len(prefix)+len(suffix)
}
