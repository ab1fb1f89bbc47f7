package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorObject is emitted only for error logs.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// Logger writes single-line JSON events:
// timestamp, level, service, action, message, hostname, request_id, ride_id, details, error.
type Logger struct {
	service  string
	hostname string
	base     *logrus.Logger
}

// New creates a structured logger for the given service.
func New(service string) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}

	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}

	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	return &Logger{service: service, hostname: hn, base: base}
}

// SetLevel parses level (debug|info|warn|error); unknown values fall back to info.
func (l *Logger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.base.SetLevel(lvl)
}

// SetOutput redirects the log stream.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Named returns a logger for another service sharing this one's output and level.
func (l *Logger) Named(service string) *Logger {
	cp := *l
	if strings.TrimSpace(service) != "" {
		cp.service = service
	}
	return &cp
}

func (l *Logger) entry(ctx context.Context, action string, details any) *logrus.Entry {
	fields := logrus.Fields{
		"service":  l.service,
		"action":   safeAction(action),
		"hostname": l.hostname,
	}
	if id := requestID(ctx); id != "" {
		fields["request_id"] = id
	}
	if id := rideID(ctx); id != "" {
		fields["ride_id"] = id
	}
	if details != nil {
		fields["details"] = details
	}
	return l.base.WithFields(fields)
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.entry(ctx, action, details).Debug(strings.TrimSpace(msg))
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.entry(ctx, action, details).Info(strings.TrimSpace(msg))
}

// Error writes an ERROR line and attaches an error stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}

	l.entry(ctx, action, details).
		WithField("error", ErrorObject{
			Msg:   strings.TrimSpace(err.Error()),
			Stack: string(debug.Stack()),
		}).
		Error(strings.TrimSpace(msg))
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "ridedispatch_request_id"
	ctxKeyRideID    ctxKey = "ridedispatch_ride_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	if strings.TrimSpace(reqID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

// WithRideID returns a new context carrying ride_id.
func (l *Logger) WithRideID(ctx context.Context, rideID string) context.Context {
	if strings.TrimSpace(rideID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRideID, rideID)
}

// requestID extracts request_id from ctx (if any).
func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// rideID extracts ride_id from ctx (if any).
func rideID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxKeyRideID).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
