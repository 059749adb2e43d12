package logging

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"explainx/internal/cron"
)

// CronSink writes cron job events through zap.
type CronSink struct {
	log *zap.Logger
}

var _ cron.Sink = (*CronSink)(nil)

func NewCronSink(log *zap.Logger) *CronSink {
	return &CronSink{log: log.With(zap.String("component", "cron"))}
}

func (s *CronSink) Info(ctx context.Context, job, msg string, fields map[string]any) {
	s.log.Info(msg, s.fields(ctx, job, fields)...)
}

func (s *CronSink) Error(ctx context.Context, job, msg string, fields map[string]any) {
	s.log.Error(msg, s.fields(ctx, job, fields)...)
}

func (s *CronSink) fields(ctx context.Context, job string, meta map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(meta)+2)
	out = append(out, zap.String("job", job))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out = append(out, zap.String("trace_id", sc.TraceID().String()))
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, zap.Any(k, meta[k]))
	}
	return out
}
