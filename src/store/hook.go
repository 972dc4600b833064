package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"infinitecopy/src/logutil"
)

// queryLogger traces statements at debug level.
type queryLogger struct{}

var _ bun.QueryHook = queryLogger{}

func (queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	entry := logrus.WithFields(logrus.Fields{
		"op":       event.Operation(),
		"duration": time.Since(event.StartTime).Round(time.Microsecond),
	})
	if event.Err != nil {
		entry = entry.WithError(event.Err)
	}
	// Queries embed clipboard text as literals.
	entry.Debug(logutil.Sanitize(event.Query))
}
