package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berktorunDev/go-archetype/httperror"
	"github.com/berktorunDev/go-archetype/ratelimiter"
	"github.com/berktorunDev/go-archetype/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cfg Config, opts ...Option) *gin.Engine {
	t.Helper()

	limit, err := RateLimiter(cfg, opts...)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api/hello", limit, func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, World!")
	})
	router.GET("/api/greet", limit, func(c *gin.Context) {
		c.String(http.StatusOK, "Greetings!")
	})
	return router
}

func hit(router *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterDeniesOverCapacity(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 5, Duration: 30, Unit: ratelimiter.UnitSecond},
		},
	})

	for i := 0; i < 5; i++ {
		w := hit(router, "/api/hello", "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	w := hit(router, "/api/hello", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body httperror.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Contains(t, body.Message, "10.0.0.1")
	assert.Contains(t, body.Message, "GET /api/hello")
	assert.Equal(t, "/api/hello", body.Path)
}

func TestRateLimiterClientsAreIndependent(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 2, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/api/hello", "10.0.0.1:1").Code)

	// A different client has its own counter, unaffected by the first.
	assert.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.2:1").Code)
}

func TestRateLimiterRoutesAreIndependent(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 1, Duration: 1, Unit: ratelimiter.UnitMinute},
			"GET /api/greet": {Limit: 1, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	})

	require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/api/hello", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(router, "/api/greet", "10.0.0.1:1").Code)
}

func TestRateLimiterWindowElapses(t *testing.T) {
	cfg := Config{
		Global: ratelimiter.GlobalPolicy{Enabled: true, Capacity: 2, Time: 1, Unit: ratelimiter.UnitSecond},
	}
	router := newTestRouter(t, cfg)

	require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/api/hello", "10.0.0.1:1").Code)

	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(), // disabled, no overrides
	})

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	}
}

func TestRateLimiterGroupPolicy(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Groups: map[string]ratelimiter.Policy{
			"/api": {Limit: 3, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	})

	// Both routes fall under the /api group, each with its own counter.
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/api/hello", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(router, "/api/greet", "10.0.0.1:1").Code)
}

func TestRateLimiterRouteOverridesGroup(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Groups: map[string]ratelimiter.Policy{
			"/api": {Limit: 1, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 3, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	})

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(router, "/api/hello", "10.0.0.1:1").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/api/hello", "10.0.0.1:1").Code)
}

func TestRateLimiterInvalidUnitFailsFast(t *testing.T) {
	_, err := RateLimiter(Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 5, Duration: 1, Unit: "fortnight"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fortnight")

	_, err = RateLimiter(Config{
		Global: ratelimiter.GlobalPolicy{Enabled: true, Capacity: 1, Time: 1, Unit: "eon"},
	})
	require.Error(t, err)
}

func TestRateLimiterNonPositivePolicyFailsFast(t *testing.T) {
	t.Run("zero global capacity", func(t *testing.T) {
		_, err := RateLimiter(Config{
			Global: ratelimiter.GlobalPolicy{Enabled: true, Capacity: 0, Time: 60, Unit: ratelimiter.UnitSecond},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capacity")
	})

	t.Run("zero global duration", func(t *testing.T) {
		_, err := RateLimiter(Config{
			Global: ratelimiter.GlobalPolicy{Enabled: true, Capacity: 10, Time: 0, Unit: ratelimiter.UnitSecond},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "window")
	})

	t.Run("route override inheriting zero capacity", func(t *testing.T) {
		_, err := RateLimiter(Config{
			Global: ratelimiter.GlobalPolicy{Enabled: false, Capacity: 0, Time: 60, Unit: ratelimiter.UnitSecond},
			Routes: map[string]ratelimiter.Policy{
				"GET /api/hello": {Duration: 30, Unit: ratelimiter.UnitSecond},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `route "GET /api/hello"`)
	})

	t.Run("group inheriting zero capacity", func(t *testing.T) {
		_, err := RateLimiter(Config{
			Global: ratelimiter.GlobalPolicy{Enabled: false, Capacity: 0, Time: 60, Unit: ratelimiter.UnitSecond},
			Groups: map[string]ratelimiter.Policy{
				"/api": {Duration: 30, Unit: ratelimiter.UnitSecond},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `group "/api"`)
	})

	t.Run("valid config still passes", func(t *testing.T) {
		_, err := RateLimiter(Config{
			Global: ratelimiter.GlobalPolicy{Enabled: true, Capacity: 10, Time: 60, Unit: ratelimiter.UnitSecond},
		})
		require.NoError(t, err)
	})
}

func TestRateLimiterRecordsDecisions(t *testing.T) {
	recorder := stats.NewMemory()
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 1, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	}, WithRecorder(recorder))

	hit(router, "/api/hello", "10.0.0.1:1")
	hit(router, "/api/hello", "10.0.0.1:1")

	totals := recorder.Totals("GET /api/hello", "10.0.0.1")
	assert.Equal(t, int64(1), totals.Allowed)
	assert.Equal(t, int64(1), totals.Denied)
}

func TestRateLimiterCustomKeyFunc(t *testing.T) {
	router := newTestRouter(t, Config{
		Global: ratelimiter.DefaultGlobalPolicy(),
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 1, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
	}, WithKeyFunc(func(c *gin.Context) string {
		return c.GetHeader("X-Api-Key")
	}))

	get := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/hello", nil)
		req.Header.Set("X-Api-Key", key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, get("alpha"))
	require.Equal(t, http.StatusTooManyRequests, get("alpha"))
	assert.Equal(t, http.StatusOK, get("beta"))
}
