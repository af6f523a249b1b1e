package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/quotesync/pkg/logging"
)

func TestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	var sawContextLogger bool
	handler := Logger(tl.Logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawContextLogger = logging.FromContext(r.Context()) != logging.Default()
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, sawContextLogger)
	tl.AssertContains(t, "HTTP request")
	tl.AssertContains(t, `"status":418`)
	tl.AssertContains(t, "/api/v1/records")
}

func TestRecovery(t *testing.T) {
	tl := logging.NewTestLogger(t)
	handler := Recovery(tl.Logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	tl.AssertContains(t, "Panic recovered")
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		config     CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{
			name:       "allow all",
			config:     DefaultCORSConfig(),
			method:     http.MethodGet,
			origin:     "http://ui.local",
			wantOrigin: "*",
			wantStatus: http.StatusOK,
		},
		{
			name:       "listed origin",
			config:     CORSConfig{AllowedOrigins: []string{"http://ui.local"}},
			method:     http.MethodGet,
			origin:     "http://ui.local",
			wantOrigin: "http://ui.local",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unlisted origin",
			config:     CORSConfig{AllowedOrigins: []string{"http://ui.local"}},
			method:     http.MethodGet,
			origin:     "http://evil.local",
			wantOrigin: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "preflight",
			config:     DefaultCORSConfig(),
			method:     http.MethodOptions,
			origin:     "http://ui.local",
			wantOrigin: "*",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/sync", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.config)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.config.AllowedMethods != nil {
				assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST"))
			}
		})
	}
}
