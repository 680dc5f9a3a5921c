package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func gateConfig() AuthConfig {
	return AuthConfig{
		AdminPathPrefix: "/admin",
		LoginPath:       "/login",
		TokenHeader:     "Authorization",
		TokenCookie:     "lna_token",
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthGate(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		token        func(*http.Request)
		wantStatus   int
		wantLocation string
	}{
		{
			name:         "admin without token redirects to login",
			path:         "/admin",
			token:        func(*http.Request) {},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/login",
		},
		{
			name:         "admin subpath without token redirects to login",
			path:         "/admin/api/products",
			token:        func(*http.Request) {},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/login",
		},
		{
			name:       "admin with header token passes",
			path:       "/admin",
			token:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok-123") },
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin with cookie token passes",
			path:       "/admin",
			token:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "lna_token", Value: "tok-123"}) },
			wantStatus: http.StatusOK,
		},
		{
			name:         "login with token redirects to admin",
			path:         "/login",
			token:        func(r *http.Request) { r.Header.Set("Authorization", "tok-123") },
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/admin",
		},
		{
			name:       "login without token passes",
			path:       "/login",
			token:      func(*http.Request) {},
			wantStatus: http.StatusOK,
		},
		{
			name:       "public path ignores the gate",
			path:       "/api/products",
			token:      func(*http.Request) {},
			wantStatus: http.StatusOK,
		},
	}

	handler := AuthGateMiddleware(gateConfig(), &NoOpLogger{})(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.token(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" {
				if got := rec.Header().Get("Location"); got != tt.wantLocation {
					t.Errorf("location = %q, want %q", got, tt.wantLocation)
				}
			}
		})
	}
}

// The gate checks presence only; any non-empty value passes. Signature
// and expiry verification are the backend's job.
func TestAuthGateAcceptsAnyTokenValue(t *testing.T) {
	handler := AuthGateMiddleware(gateConfig(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "definitely-not-a-real-jwt")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	config := &CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"https://lnadoceria.com.br", "*.preview.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
	handler := CORSMiddleware(config)(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://lnadoceria.com.br")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://lnadoceria.com.br" {
			t.Errorf("allow-origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("allow-credentials = %q", got)
		}
	})

	t.Run("wildcard subdomain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://pr-42.preview.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("wildcard subdomain origin was not allowed")
		}
	})

	t.Run("disallowed origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("allow-origin = %q, want empty", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", "https://lnadoceria.com.br")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", rec.Code)
		}
	})

	t.Run("disabled config passes through", func(t *testing.T) {
		disabled := CORSMiddleware(&CORSConfig{})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://lnadoceria.com.br")
		rec := httptest.NewRecorder()

		disabled.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("disabled CORS still set headers: %q", got)
		}
	})
}
