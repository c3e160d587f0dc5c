package ratelimiter

import (
	"fmt"
	"strings"
	"time"
)

// Policy declares a rate-limit override for a single route or a route group.
// A non-positive Limit or Duration means "unset": that field falls through to
// the next configuration level during resolution. The zero value is a fully
// unset override.
type Policy struct {
	// Limit is the maximum number of requests allowed per window.
	Limit int
	// Duration is the window length, measured in Unit.
	Duration int64
	// Unit is the time unit for Duration: "SECOND", "MINUTE" or "HOUR"
	// (case-insensitive). Defaults to "SECOND" when empty.
	Unit string
}

// IsZero reports whether the override declares nothing at all.
func (p Policy) IsZero() bool {
	return p.Limit <= 0 && p.Duration <= 0 && p.Unit == ""
}

// GlobalPolicy is the process-wide default applied to routes that carry no
// override of their own. When Enabled is false and a route has neither a
// route-level nor a group-level override, the route is not limited.
type GlobalPolicy struct {
	Enabled  bool
	Capacity int
	Time     int64
	Unit     string
}

// DefaultGlobalPolicy returns the global defaults: limiting disabled,
// 10 requests per 60 seconds once enabled.
func DefaultGlobalPolicy() GlobalPolicy {
	return GlobalPolicy{
		Enabled:  false,
		Capacity: 10,
		Time:     60,
		Unit:     UnitSecond,
	}
}

// Effective is the resolved configuration applied to one request. It is
// computed fresh per request; resolution is cheap relative to request
// handling, so nothing is cached.
type Effective struct {
	Enabled  bool
	Capacity int
	Window   time.Duration
}

// Supported time units for Policy.Unit and GlobalPolicy.Unit.
const (
	UnitSecond = "SECOND"
	UnitMinute = "MINUTE"
	UnitHour   = "HOUR"
)

// Window converts a duration value and its unit to a time.Duration.
// An unrecognized unit is a configuration error, never a silent default.
func Window(duration int64, unit string) (time.Duration, error) {
	if unit == "" {
		unit = UnitSecond
	}
	switch {
	case strings.EqualFold(unit, UnitSecond):
		return time.Duration(duration) * time.Second, nil
	case strings.EqualFold(unit, UnitMinute):
		return time.Duration(duration) * time.Minute, nil
	case strings.EqualFold(unit, UnitHour):
		return time.Duration(duration) * time.Hour, nil
	default:
		return 0, &ConfigError{
			Reason: fmt.Sprintf("invalid time unit %q: expected SECOND, MINUTE or HOUR", unit),
		}
	}
}

// ValidateUnit reports whether unit names a supported time unit. It exists so
// callers holding static configuration can fail fast at startup instead of on
// the first matching request.
func ValidateUnit(unit string) error {
	_, err := Window(1, unit)
	return err
}

// Resolve computes the effective configuration for one route from up to three
// layered sources, highest priority first: the route-level override, the
// group-level override, and the global default.
//
// Capacity and window are resolved independently, so a route override may pin
// only the limit and inherit its window from the group or global level.
// Limiting is enabled whenever a route or group override is present; otherwise
// the global Enabled flag decides.
//
// An enabled policy must resolve to a positive capacity and window; anything
// else is a *ConfigError, never a counter that denies or admits everything.
func Resolve(route, group *Policy, global GlobalPolicy) (Effective, error) {
	hasRoute := route != nil && !route.IsZero()
	hasGroup := group != nil && !group.IsZero()

	if !hasRoute && !hasGroup && !global.Enabled {
		return Effective{}, nil
	}

	capacity := global.Capacity
	if hasGroup && group.Limit > 0 {
		capacity = group.Limit
	}
	if hasRoute && route.Limit > 0 {
		capacity = route.Limit
	}

	window, err := Window(global.Time, global.Unit)
	if err != nil {
		return Effective{}, err
	}
	if hasGroup && group.Duration > 0 {
		window, err = Window(group.Duration, group.Unit)
		if err != nil {
			return Effective{}, err
		}
	}
	if hasRoute && route.Duration > 0 {
		window, err = Window(route.Duration, route.Unit)
		if err != nil {
			return Effective{}, err
		}
	}

	if capacity <= 0 {
		return Effective{}, &ConfigError{
			Reason: fmt.Sprintf("capacity must be positive, resolved %d", capacity),
		}
	}
	if window <= 0 {
		return Effective{}, &ConfigError{
			Reason: fmt.Sprintf("window must be positive, resolved %s", window),
		}
	}

	return Effective{Enabled: true, Capacity: capacity, Window: window}, nil
}
