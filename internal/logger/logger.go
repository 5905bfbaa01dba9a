package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fluentdTag is the tag every forwarded record is posted under
const fluentdTag = "tenantcore.logs"

// Logger is a zap sugared logger that also forwards records to fluentd
// when a forwarder is configured
type Logger struct {
	*zap.SugaredLogger
	forwarder *fluent.Fluent
	service   string
	// fields carried by With and WithContext, repeated on forwarded records
	fields map[string]interface{}
}

// NewLogger builds the process logger from the logging section of cfg
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Logging.Level == types.LogLevelDebug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableStacktrace = true

	zapLogger, err := zapCfg.Build(zap.Fields(zap.String("service", "tenantcore")))
	if err != nil {
		return nil, err
	}
	sugar := zapLogger.Sugar()

	l := &Logger{
		SugaredLogger: sugar,
		service:       string(cfg.Deployment.Mode),
	}
	if !cfg.Logging.FluentdEnabled {
		return l, nil
	}
	if cfg.Logging.FluentdHost == "" || cfg.Logging.FluentdPort <= 0 {
		sugar.Warn("fluentd enabled without host and port, logging to stdout only")
		return l, nil
	}

	forwarder, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Logging.FluentdHost,
		FluentPort:   cfg.Logging.FluentdPort,
		Async:        true,
		BufferLimit:  8 * 1024 * 1024,
		WriteTimeout: 3 * time.Second,
		RetryWait:    500,
		MaxRetry:     5,
	})
	if err != nil {
		sugar.Warnw("fluentd unavailable, logging to stdout only", "error", err)
		return l, nil
	}
	sugar.Infow("forwarding logs to fluentd", "host", cfg.Logging.FluentdHost, "port", cfg.Logging.FluentdPort)
	l.forwarder = forwarder
	return l, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Close flushes zap and closes the fluentd connection
func (l *Logger) Close() error {
	_ = l.SugaredLogger.Sync()
	if l.forwarder != nil {
		return l.forwarder.Close()
	}
	return nil
}

// With returns a child logger carrying keysAndValues on every record
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range pairs(keysAndValues) {
		fields[k] = v
	}
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(keysAndValues...),
		forwarder:     l.forwarder,
		service:       l.service,
		fields:        fields,
	}
}

// WithContext tags the logger with the request id and the resolved tenant,
// actor and capability of ctx. Empty values are left out.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := make([]interface{}, 0, 8)
	if v := types.GetRequestID(ctx); v != "" {
		kv = append(kv, "request_id", v)
	}
	if v := types.GetTenantID(ctx); v != "" {
		kv = append(kv, "tenant_id", v)
	}
	if v := types.GetUserID(ctx); v != "" {
		kv = append(kv, "user_id", v)
	}
	if c := types.GetCapability(ctx); c != types.CapabilityNone {
		kv = append(kv, "capability", c.String())
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

// WithTenant tags a logger with tenantID. Background jobs use it since they
// carry no request context.
func (l *Logger) WithTenant(tenantID string) *Logger {
	return l.With("tenant_id", tenantID)
}

func (l *Logger) Debugf(template string, args ...interface{}) {
	l.SugaredLogger.Debugf(template, args...)
	l.forward("debug", fmt.Sprintf(template, args...), nil)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.SugaredLogger.Infof(template, args...)
	l.forward("info", fmt.Sprintf(template, args...), nil)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.SugaredLogger.Warnf(template, args...)
	l.forward("warning", fmt.Sprintf(template, args...), nil)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	l.forward("error", fmt.Sprintf(template, args...), nil)
}

func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.forward("fatal", fmt.Sprintf(template, args...), nil)
	l.SugaredLogger.Fatalf(template, args...)
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
	l.forward("debug", msg, keysAndValues)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
	l.forward("info", msg, keysAndValues)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
	l.forward("warning", msg, keysAndValues)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
	l.forward("error", msg, keysAndValues)
}

// forward posts one record to fluentd. Posting is async, a failure is
// reported on stdout and otherwise ignored.
func (l *Logger) forward(level, msg string, keysAndValues []interface{}) {
	if l.forwarder == nil {
		return
	}

	record := map[string]interface{}{
		"level":     level,
		"message":   msg,
		"service":   l.service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range l.fields {
		record[k] = v
	}
	for k, v := range pairs(keysAndValues) {
		record[k] = errorString(v)
	}

	if err := l.forwarder.Post(fluentdTag, record); err != nil {
		l.SugaredLogger.Warnw("fluentd post failed", "error", err)
	}
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			out[key] = keysAndValues[i+1]
		}
	}
	return out
}

// errors marshal to {} through msgpack
func errorString(v interface{}) interface{} {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}
