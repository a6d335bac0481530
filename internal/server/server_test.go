package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"consigna/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "development", BaseURL: "http://localhost:8080"},
		DataStore: config.DataStoreConfig{Driver: config.DataStoreLocal, LocalPath: filepath.Join(t.TempDir(), "consigna.db")},
		JWT:       config.JWTConfig{Secret: "test-secret", SessionExpiry: 60},
		WhatsApp:  config.WhatsAppConfig{CountryCode: "54"},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

func TestServerWithLocalStore(t *testing.T) {
	cfg := testConfig(t)
	storage, err := OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, storage.Hub)

	srv, err := NewServer(cfg, zap.NewNop(), storage)
	require.NoError(t, err)
	defer srv.Close()

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/suppliers", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := `{"email":"ana@test.com","password":"password123"}`
	req := httptest.NewRequest("POST", "/api/auth/sign-up", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// google sign-in is not configured
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/auth/oauth/google", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenStorageRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataStore.Driver = "sqlite"

	_, err := OpenStorage(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
