// Package logging builds the service logger and adapts it to the narrow
// interfaces other packages accept.
package logging

import (
	"go.uber.org/zap"
)

// New constructs the application logger. Development mode uses a console
// encoder with human-friendly output; otherwise JSON suitable for shipping.
func New(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ZapAdapter adapts a zap logger to the middleware.Logger interface.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter wraps l for use by the rate-limit middleware. A nil logger
// is replaced with a no-op one.
func NewZapAdapter(l *zap.Logger) *ZapAdapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapAdapter{sugar: l.Sugar()}
}

func (a *ZapAdapter) Debugf(format string, args ...interface{}) {
	a.sugar.Debugf(format, args...)
}

func (a *ZapAdapter) Errorf(format string, args ...interface{}) {
	a.sugar.Errorf(format, args...)
}
