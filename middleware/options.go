package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/berktorunDev/go-archetype/stats"
)

// Logger is the minimal logging surface the middleware needs. Any structured
// logger can be adapted to it; logging.ZapAdapter does so for zap.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is used when no logger is provided, to avoid nil checks on the
// hot path.
type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// KeyFunc extracts the client identity from a request. The default uses
// gin's ClientIP, which honors trusted proxy headers.
type KeyFunc func(c *gin.Context) string

// GroupFunc maps a route path to the configuration group it belongs to,
// returning "" when the route is in no group. The default picks the longest
// configured group prefix that matches the path.
type GroupFunc func(path string) string

// Option customizes the rate-limit middleware.
type Option func(*settings)

type settings struct {
	logger   Logger
	recorder stats.Recorder
	keyFn    KeyFunc
	groupFn  GroupFunc
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		logger: noopLogger{},
		keyFn: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithLogger sets the logger used for allow/deny decisions and internal errors.
func WithLogger(l Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets a stats recorder for admission decisions. Recording is
// best-effort: errors are logged and the request proceeds regardless.
func WithRecorder(r stats.Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}

// WithKeyFunc sets a custom client-identity extractor, for limiting by API
// key, user id, or similar instead of IP address.
func WithKeyFunc(f KeyFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.keyFn = f
		}
	}
}

// WithGroupFunc sets a custom route-to-group mapping.
func WithGroupFunc(f GroupFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.groupFn = f
		}
	}
}
