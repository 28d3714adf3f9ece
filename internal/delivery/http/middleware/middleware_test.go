package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"job-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(h fiber.Handler, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(NewAccessLogMiddleware(nil).Middleware())
	app.Use(NewErrorMiddleware(nil).Middleware())
	for _, m := range extra {
		app.Use(m)
	}
	app.Get("/", h)
	return app
}

func call(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, response.SemanticResponse) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var sr response.SemanticResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sr))
	return resp, sr
}

func TestErrorMiddleware_Normalizes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"app error keeps message", NewAppError(fiber.StatusNotFound, "Job not found", nil, nil), 404, "Job not found"},
		{"5xx hidden", NewAppError(fiber.StatusBadGateway, "upstream said no", nil, errors.New("secret")), 500, response.MessageInternalServerError},
		{"503 passes through", NewAppError(fiber.StatusServiceUnavailable, "Embedding provider unavailable", nil, nil), 503, "Embedding provider unavailable"},
		{"fiber error", fiber.NewError(fiber.StatusConflict), 409, "Conflict"},
		{"plain error", errors.New("boom"), 500, response.MessageInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newApp(func(fiber.Ctx) error { return tc.err })
			resp, sr := call(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.status, sr.Status)
			assert.Equal(t, tc.message, sr.Message)
		})
	}
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	app := newApp(func(fiber.Ctx) error { panic("nil map") })
	resp, sr := call(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, response.MessageInternalServerError, sr.Message)
}

func TestAccessLog_EchoesRequestID(t *testing.T) {
	app := newApp(func(c fiber.Ctx) error {
		return response.Success(c, fiber.StatusOK, "", nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "rid-123")
	resp, sr := call(t, app, req)
	assert.Equal(t, "rid-123", resp.Header.Get(HeaderRequestID))
	assert.Equal(t, "rid-123", sr.RequestID)
	assert.Equal(t, response.MessageOK, sr.Message)

	resp, sr = call(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	assert.Equal(t, resp.Header.Get(HeaderRequestID), sr.RequestID)
}

func TestInternalTokenMiddleware(t *testing.T) {
	ok := func(c fiber.Ctx) error { return response.Success(c, fiber.StatusOK, "", nil) }

	app := newApp(ok, NewInternalTokenMiddleware("s3cret").Middleware())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderInternalToken, "s3cret")
	resp, _ := call(t, app, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderInternalToken, "nope")
	resp, _ = call(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	app = newApp(ok, NewInternalTokenMiddleware("").Middleware())
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderInternalToken, "")
	resp, _ = call(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBearerTokenFromHeader(t *testing.T) {
	tok, ok := bearerTokenFromHeader("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, ok := bearerTokenFromHeader(h)
		assert.False(t, ok, h)
	}
}
