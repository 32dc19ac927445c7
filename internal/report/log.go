package report

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/mapwatch/internal/models"
)

// LogSink writes attachments to a structured logger. Text attachments are
// logged verbatim, binary ones by size only.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (ls *LogSink) Attach(ctx context.Context, runID, name, mediaType string, data []byte) error {
	if mediaType == MediaText {
		ls.log.InfoContext(ctx, "METRIC", "run", runID, "name", name, "value", string(data))
		return nil
	}
	ls.log.DebugContext(ctx, "Binary attachment recorded", "run", runID, "name", name,
		"media_type", mediaType, "bytes", len(data))

	return nil
}

func (ls *LogSink) Finish(ctx context.Context, result models.CheckResult) error {
	if result.Passed() {
		ls.log.InfoContext(ctx, "HEALTH CHECK PASSED", "run", result.ID, "latency", result.Latency,
			"latitude", result.Latitude, "drift", result.Drift)
		return nil
	}
	ls.log.ErrorContext(ctx, "HEALTH CHECK FAILED", "run", result.ID, "reason", result.Reason,
		"failed_at", result.FailedAt, "message", result.Message)

	return nil
}
