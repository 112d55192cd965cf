package sink

import (
	"go.uber.org/zap"
)

// ZapAnalytics records product events as structured log lines, picked up by
// the log pipeline downstream.
type ZapAnalytics struct {
	logger *zap.Logger
}

// NewZapAnalytics creates a log-backed analytics sink.
func NewZapAnalytics(logger *zap.Logger) *ZapAnalytics {
	return &ZapAnalytics{logger: logger.Named("analytics")}
}

func (a *ZapAnalytics) LogEvent(name string, properties map[string]string) {
	fields := make([]zap.Field, 0, len(properties)+1)
	fields = append(fields, zap.String("event", name))
	for k, v := range properties {
		fields = append(fields, zap.String(k, v))
	}
	a.logger.Info("Analytics event", fields...)
}
