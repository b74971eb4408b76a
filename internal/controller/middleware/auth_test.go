package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		authHeader string
		wantStatus int
		wantCalled bool
	}{
		{name: "Disabled", token: "", authHeader: "", wantStatus: http.StatusOK, wantCalled: true},
		{name: "Missing header", token: "secret", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", token: "secret", authHeader: "Basic secret", wantStatus: http.StatusUnauthorized},
		{name: "Too many parts", token: "secret", authHeader: "Bearer secret extra", wantStatus: http.StatusUnauthorized},
		{name: "Wrong token", token: "secret", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "Valid token", token: "secret", authHeader: "Bearer secret", wantStatus: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireToken(tt.token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/process-step", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", rr.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON error body, got Content-Type %q", rr.Header().Get("Content-Type"))
			}
		})
	}
}
