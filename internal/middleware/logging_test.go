package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddlewareRecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.Get("/api/garments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(SessionHeader, "sess-1")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path  string
		route string
		level zapcore.Level
	}{
		{"/api/garments/123", "/api/garments/{id}", zapcore.InfoLevel},
		{"/boom", "/boom", zapcore.ErrorLevel},
		{"/nowhere", "unmatched", zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, "Request completed", entries[0].Message)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, tt.route, entries[0].ContextMap()["route"])
		})
	}
}

func TestLoggingMiddlewareIncludesSession(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(SessionHeader, "sess-42")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/session", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "sess-42", fields["session_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}
