// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with request-scoped values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("user_id", userID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// TransitionDenied logs a rejected pipeline stage transition.
func (l *Logger) TransitionDenied(pipelineID, stageID, requested string, err error) {
	l.Warn("transition_denied",
		slog.String("pipeline_id", pipelineID),
		slog.String("stage_id", stageID),
		slog.String("requested_status", requested),
		slog.String("error", err.Error()),
	)
}

// PromotionEvent logs the outcome of a pipeline promotion.
func (l *Logger) PromotionEvent(pipelineID, direction string, success bool, reason string) {
	if success {
		l.Info("pipeline_promotion",
			slog.String("pipeline_id", pipelineID),
			slog.String("direction", direction),
			slog.Bool("success", true),
		)
		return
	}
	l.Error("pipeline_promotion",
		slog.String("pipeline_id", pipelineID),
		slog.String("direction", direction),
		slog.Bool("success", false),
		slog.String("reason", reason),
	)
}

// OutboxEvent logs notification outbox processing.
func (l *Logger) OutboxEvent(outboxID, kind, status string) {
	l.Info("notification_outbox",
		slog.String("outbox_id", outboxID),
		slog.String("kind", kind),
		slog.String("status", status),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
