package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func preflight(handler http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/garments", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSProductionOnlyAllowsConfiguredOrigins(t *testing.T) {
	handler := CORSMiddleware([]string{"https://tienda.example"}, false)(okHandler())

	allowed := preflight(handler, "https://tienda.example")
	assert.Equal(t, "https://tienda.example", allowed.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", allowed.Header().Get("Access-Control-Allow-Credentials"))

	denied := preflight(handler, "https://evil.example")
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDevelopmentReflectsAnyOrigin(t *testing.T) {
	handler := CORSMiddleware([]string{"https://tienda.example"}, true)(okHandler())

	w := preflight(handler, "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
