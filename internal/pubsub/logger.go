package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/flexprice/tenantcore/internal/logger"
)

// LoggerAdapter routes watermill's logging into the service logger
type LoggerAdapter struct {
	log *logger.Logger
}

func NewLoggerAdapter(log *logger.Logger) watermill.LoggerAdapter {
	return &LoggerAdapter{log: log}
}

func (l *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Errorw(msg, append(flatten(fields), "error", err)...)
}

func (l *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.log.Infow(msg, flatten(fields)...)
}

func (l *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log.Debugw(msg, flatten(fields)...)
}

// Trace is dropped; watermill traces every message
func (l *LoggerAdapter) Trace(string, watermill.LogFields) {}

func (l *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{log: l.log.With(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
