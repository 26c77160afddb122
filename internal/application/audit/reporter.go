package audit

import (
	"context"
	"encoding/json"
	"time"

	"fundgate-backend/internal/pkg/healthkeys"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrorReporter is the error channel for failures that must not fail the
// request they happened in.
type ErrorReporter interface {
	Report(ctx context.Context, err error, fields map[string]interface{})
}

const errorLogMax = 100

// LogReporter logs through zerolog and, when Rdb is set, keeps the most recent
// entries in the health error log list served by /health/errors.
type LogReporter struct {
	Rdb    *redis.Client
	Source string
}

func (r *LogReporter) Report(ctx context.Context, err error, fields map[string]interface{}) {
	source := r.Source
	if source == "" {
		source = "audit"
	}
	log.Error().Err(err).Str("source", source).Fields(fields).Msg("reported error")
	if r.Rdb == nil {
		return
	}
	entry := map[string]interface{}{
		"time":    time.Now().UTC(),
		"source":  source,
		"message": err.Error(),
		"fields":  fields,
	}
	b, _ := json.Marshal(entry)
	pipe := r.Rdb.TxPipeline()
	pipe.LPush(ctx, healthkeys.ErrorLog, b)
	pipe.LTrim(ctx, healthkeys.ErrorLog, 0, errorLogMax-1)
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Warn().Err(perr).Msg("failed to push error log entry")
	}
}

// Log writes e to sink. A failed write is reported, never returned, so the
// calling operation proceeds unchanged.
func Log(ctx context.Context, sink Sink, reporter ErrorReporter, e Event) {
	if sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := sink.Write(ctx, e); err != nil {
		if reporter == nil {
			reporter = &LogReporter{}
		}
		reporter.Report(ctx, err, map[string]interface{}{
			"event_type":    e.EventType,
			"resource_type": e.ResourceType,
			"resource_id":   e.ResourceID,
		})
	}
}
