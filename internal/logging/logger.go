// Package logging provides structured logging for the worker processes.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used to carry logging fields.
type ContextKey string

const (
	// RequestIDKey is the context key for the request/idempotency id.
	RequestIDKey ContextKey = "request_id"
	// MessageTypeKey is the context key for the wire message type name.
	MessageTypeKey ContextKey = "message_type"
)

// Logger wraps logrus.Logger with worker-specific fields.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a Logger for the named service at the given level and format ("json" or "text").
func New(service, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, service: service}
}

// NewFromEnv builds a Logger using LOG_LEVEL and LOG_FORMAT, defaulting to info/json.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext attaches request-scoped fields carried on ctx to a new entry.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		entry = entry.WithField("request_id", requestID)
	}
	if messageType := ctx.Value(MessageTypeKey); messageType != nil {
		entry = entry.WithField("message_type", messageType)
	}
	return entry
}

// WithRequestID creates an entry tagged with the given request id.
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"service":    l.service,
		"request_id": requestID,
	})
}
