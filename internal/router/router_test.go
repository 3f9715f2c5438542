package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursework-api/internal/config"
	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/router"
)

func newRouterApp() *fiber.App {
	logger := zerolog.Nop()
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Coursework API", JWTSecret: "secret"}, router.Dependencies{
		ActivityHandler: handler.NewActivityHandler(nil, logger),
		JWTMiddleware:   middleware.JWTProtected("secret"),
	})
	return app
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	app := newRouterApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Coursework API", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "coursework_http_requests_total")
}

func TestVersionedRoutesRequireToken(t *testing.T) {
	app := newRouterApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/admin/activities", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
