package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging interface used across the service.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type contextKey string

// CorrelationIDKey is the context key the correlation middleware writes.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID stores id on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID returns the id stored on ctx, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
	Output      io.Writer
}

// NewStructuredLogger builds a logrus backed Logger. Unknown levels fall
// back to info; any format other than "json" prints text.
func NewStructuredLogger(config LoggerConfig) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	}

	if config.Output != nil {
		l.SetOutput(config.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	return &structuredLogger{
		logger: l,
		fields: logrus.Fields{"service": config.ServiceName},
	}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &structuredLogger{logger: l, fields: logrus.Fields{}}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, logrus.InfoLevel, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, logrus.ErrorLevel, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, logrus.WarnLevel, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, logrus.DebugLevel, nil, fields).Debug(message)
}

// WithFields returns a child logger carrying fields on every entry.
func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &structuredLogger{logger: l.logger, fields: merged}
}

func (l *structuredLogger) entry(ctx context.Context, level logrus.Level, err error, fields map[string]interface{}) *logrus.Entry {
	e := l.logger.WithFields(l.fields)
	if len(fields) > 0 {
		e = e.WithFields(logrus.Fields(fields))
	}
	if id := CorrelationID(ctx); id != "" {
		e = e.WithField("correlation_id", id)
	}
	if err != nil {
		e = e.WithError(err)
	}
	// caller is skipped at info to keep request logs short
	if level != logrus.InfoLevel && l.logger.IsLevelEnabled(level) {
		if pc, file, line, ok := runtime.Caller(2); ok {
			e = e.WithField("caller", fmt.Sprintf("%s:%d %s", file, line, runtime.FuncForPC(pc).Name()))
		}
	}
	return e
}

// LogAuthEvent records a login related event. Failures go out at WARN.
func LogAuthEvent(ctx context.Context, logger Logger, event string, email, ip string, success bool, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "auth"
	fields["auth_event"] = event
	fields["email"] = email
	fields["ip"] = ip
	fields["success"] = success

	if success {
		logger.Info(ctx, fmt.Sprintf("Auth event: %s", event), fields)
		return
	}
	logger.Warn(ctx, fmt.Sprintf("Auth event failed: %s", event), fields)
}

// LogTransition records a committed workflow transition.
func LogTransition(ctx context.Context, logger Logger, requestID, from, to, actor string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "workflow"
	fields["request_id"] = requestID
	fields["from"] = from
	fields["to"] = to
	fields["actor"] = actor
	logger.Info(ctx, fmt.Sprintf("Travel request %s: %s -> %s", requestID, from, to), fields)
}

// LogPerformance records how long an operation took.
func LogPerformance(ctx context.Context, logger Logger, operation string, duration time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "performance"
	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()
	logger.Info(ctx, fmt.Sprintf("Performance: %s took %s", operation, duration), fields)
}
