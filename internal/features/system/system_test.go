package system

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go-outreach/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type stubFeed int

func (f stubFeed) Subscribers() int { return int(f) }

func newSystemApp(pingErr error) *fiber.App {
	cfg := &config.Config{SkipAuth: true, Environment: "test", DefaultTimezone: "UTC", SweepSchedule: "@every 5m"}
	app := fiber.New()
	NewSystemApi(NewSystemController(stubPinger{err: pingErr}, stubFeed(2), cfg), cfg).Setup(app)
	return app
}

func TestHealth(t *testing.T) {
	resp, err := newSystemApp(nil).Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestReady(t *testing.T) {
	resp, err := newSystemApp(nil).Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = newSystemApp(errors.New("no reachable servers")).Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	resp, err := newSystemApp(nil).Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestInfo(t *testing.T) {
	resp, err := newSystemApp(nil).Test(httptest.NewRequest("GET", "/api/system/info", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "dev-user-id", body["user_id"])
	assert.Equal(t, float64(2), body["live_subscribers"])
	assert.Equal(t, "@every 5m", body["sweep_schedule"])
}
