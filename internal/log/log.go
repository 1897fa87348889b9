// Package log provides the slog-with-context timing helper used across
// Wassette's core packages: a start/duration/error wrapper around an
// operation, plus component-id and tool-name attribute builders.
package log

import (
	"context"
	"log/slog"
	"time"

	slogcontext "github.com/veqryn/slog-context"
)

// Operation logs operation's start, then returns a function to call with the
// operation's outcome; the returned function logs completion or failure with
// the elapsed duration. realm identifies the owning package ("component",
// "dispatch") so multiplexed logs stay attributable.
func Operation(ctx context.Context, realm, operation string, fields ...slog.Attr) func(error) {
	start := time.Now()
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", realm), slog.String("operation", operation))
	logger.LogAttrs(ctx, slog.LevelDebug, "operation starting", fields...)

	return func(err error) {
		duration := slog.Duration("duration", time.Since(start))

		level, msg := slog.LevelDebug, "operation completed"
		if err != nil {
			level, msg = slog.LevelError, "operation failed"
			fields = append(fields, slog.String("error", err.Error()))
		}
		logger.LogAttrs(ctx, level, msg, append([]slog.Attr{duration}, fields...)...)
	}
}

// ComponentAttr tags a log entry with the component id a call concerns.
func ComponentAttr(id string) slog.Attr { return slog.String("component_id", id) }

// ToolAttr tags a log entry with the qualified tool name a call invoked.
func ToolAttr(name string) slog.Attr { return slog.String("tool", name) }
