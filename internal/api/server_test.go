package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/KhanMaytok/pixl-interview/internal/auth"
	"github.com/KhanMaytok/pixl-interview/internal/config"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	jv, err := auth.NewValidator(config.JWT{Alg: "HS256", HSSecret: "secret"})
	require.NoError(t, err)
	return NewServer(nil, nil, nil, jv)
}

func TestHealthzIsOpen(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestRoutesMountUnderAPIV1(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	// Versioned path exists; without a token the middleware answers 401.
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/messages/fetch", nil))
	req.NoError(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// The unversioned prefix is not routed.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/messages/fetch", nil))
	req.NoError(err)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestWSRouteRequiresAuth(t *testing.T) {
	req := require.New(t)
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/chat?token=garbage", nil))
	req.NoError(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}
