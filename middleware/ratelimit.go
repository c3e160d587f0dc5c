// Package middleware provides the gin middleware of the archetype: the
// per-route rate-limit interceptor and the request/response audit log.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berktorunDev/go-archetype/httperror"
	"github.com/berktorunDev/go-archetype/ratelimiter"
	"github.com/berktorunDev/go-archetype/stats"
)

// Config declares the rate-limit policy surface for the whole service.
//
// Routes are keyed by "METHOD /full/path" using the registered route pattern
// (gin's FullPath), so "GET /api/users/:id" covers every id. Groups are keyed
// by path prefix and act as the middle layer between a route override and the
// global default, the way a class-level setting covers the methods in it.
type Config struct {
	Global ratelimiter.GlobalPolicy
	Groups map[string]ratelimiter.Policy
	Routes map[string]ratelimiter.Policy
}

// RateLimiter builds the admission-control middleware. It validates every
// declared time unit up front and returns the configuration error before the
// server starts serving, so a bad unit never waits for its first matching
// request.
//
// Per request it resolves the effective (capacity, window) for the matched
// route, fetches the counter for the (route, client) pair from a private
// registry, and either lets the request through or rejects it with a 429
// envelope identifying the client and the route.
func RateLimiter(cfg Config, opts ...Option) (gin.HandlerFunc, error) {
	s := newSettings(opts...)
	if s.groupFn == nil {
		s.groupFn = prefixGroupFunc(cfg.Groups)
	}

	if err := validate(cfg, s); err != nil {
		return nil, err
	}

	registry := ratelimiter.NewRegistry()

	return func(c *gin.Context) {
		operation := operationID(c)

		eff, err := resolveFor(cfg, s, operation)
		if err != nil {
			// Unreachable after validate, barring config mutation at runtime.
			s.logger.Errorf("rate limit resolution failed for %s: %v", operation, err)
			httperror.Write(c, http.StatusInternalServerError, "invalid rate limit configuration")
			return
		}
		if !eff.Enabled {
			c.Next()
			return
		}

		client := s.keyFn(c)
		counter := registry.Get(ratelimiter.Key(operation, client), eff.Capacity, eff.Window)
		allowed := counter.Allow()

		record(c, s, stats.Event{
			Operation: operation,
			Client:    client,
			Allowed:   allowed,
			At:        time.Now(),
		})

		c.Header("X-RateLimit-Limit", strconv.Itoa(counter.Capacity()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(counter.Remaining()))

		if !allowed {
			limitErr := &ratelimiter.LimitError{Operation: operation, Client: client}
			_ = c.Error(limitErr)
			s.logger.Debugf("request denied for client %s on %s", client, operation)

			retryAfter := int(counter.ResetAfter().Seconds())
			if retryAfter <= 0 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			httperror.Write(c, http.StatusTooManyRequests, limitErr.Error())
			return
		}

		s.logger.Debugf("request allowed for client %s on %s", client, operation)
		c.Next()
	}, nil
}

// operationID is the stable identity of the invoked handler. Unmatched
// requests fall back to the raw path so NoRoute traffic still groups sanely.
func operationID(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}

func resolveFor(cfg Config, s *settings, operation string) (ratelimiter.Effective, error) {
	var route, group *ratelimiter.Policy

	if p, ok := cfg.Routes[operation]; ok {
		route = &p
	}

	_, path, found := strings.Cut(operation, " ")
	if found {
		if prefix := s.groupFn(path); prefix != "" {
			if p, ok := cfg.Groups[prefix]; ok {
				group = &p
			}
		}
	}

	return ratelimiter.Resolve(route, group, cfg.Global)
}

func record(c *gin.Context, s *settings, ev stats.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(c.Request.Context(), ev); err != nil {
		s.logger.Errorf("stats record failed for %s: %v", ev.Operation, err)
	}
}

// prefixGroupFunc returns the default route-to-group mapping: the longest
// configured prefix that matches the route path.
func prefixGroupFunc(groups map[string]ratelimiter.Policy) GroupFunc {
	return func(path string) string {
		best := ""
		for prefix := range groups {
			if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
				best = prefix
			}
		}
		return best
	}
}

// validate resolves every declared policy combination eagerly so
// configuration errors surface at startup: unrecognized units everywhere
// they appear (even on overrides whose duration is unset), and enabled
// policies whose resolved capacity or window is not positive.
func validate(cfg Config, s *settings) error {
	if err := ratelimiter.ValidateUnit(cfg.Global.Unit); err != nil {
		return fmt.Errorf("global policy: %w", err)
	}
	if _, err := ratelimiter.Resolve(nil, nil, cfg.Global); err != nil {
		return fmt.Errorf("global policy: %w", err)
	}

	for prefix, p := range cfg.Groups {
		if err := ratelimiter.ValidateUnit(p.Unit); err != nil {
			return fmt.Errorf("group %q: %w", prefix, err)
		}
		if _, err := ratelimiter.Resolve(nil, &p, cfg.Global); err != nil {
			return fmt.Errorf("group %q: %w", prefix, err)
		}
	}

	for route, p := range cfg.Routes {
		if err := ratelimiter.ValidateUnit(p.Unit); err != nil {
			return fmt.Errorf("route %q: %w", route, err)
		}
		if _, err := resolveFor(cfg, s, route); err != nil {
			return fmt.Errorf("route %q: %w", route, err)
		}
	}
	return nil
}
