// Package stats records rate-limit decisions for later inspection.
//
// Two recorders are provided:
//   - Memory: in-process counts, suitable for tests and single instances
//   - Redis: shared counts, suitable when several replicas should report
//     into one place
//
// Recording is strictly advisory: a failing recorder must never block or
// fail the request path, so the middleware logs recorder errors and moves on.
package stats

import (
	"context"
	"time"
)

// Event describes one admission decision.
type Event struct {
	Operation string
	Client    string
	Allowed   bool
	At        time.Time
}

// Recorder persists decision events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
