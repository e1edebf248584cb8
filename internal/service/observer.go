package service

import (
	"context"
	"log/slog"
	"regexp"
)

// Pipeline event names emitted at each transition.
const (
	EventPreflight          = "preflight"
	EventMethodRejected     = "method_rejected"
	EventAuthRejected       = "auth_rejected"
	EventValidationRejected = "validation_rejected"
	EventRequestError       = "request_error"
	EventConfigRejected     = "config_rejected"
	EventUpstreamCallStart  = "upstream_call_start"
	EventUpstreamCallResult = "upstream_call_result"
	EventUpstreamCallError  = "upstream_call_error"
	EventPipelinePanic      = "pipeline_panic"
)

// Event describes one pipeline transition.
type Event struct {
	Level    slog.Level
	Name     string
	Endpoint string
	Attrs    []slog.Attr
}

// Observer receives pipeline events. Implementations must not block and
// must be safe for concurrent use; they cannot influence control flow.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// NopObserver discards every event.
type NopObserver struct{}

// Observe does nothing.
func (NopObserver) Observe(context.Context, Event) {}

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

// Observe forwards ev to every observer.
func (o Observers) Observe(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, ev)
		}
	}
}

// LogObserver writes pipeline events to a slog.Logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("component", "pipeline")}
}

// Observe logs ev at its level with the endpoint name attached. Session
// tokens inside string attributes are redacted.
func (o *LogObserver) Observe(ctx context.Context, ev Event) {
	attrs := make([]slog.Attr, 0, len(ev.Attrs)+1)
	attrs = append(attrs, slog.String("endpoint", ev.Endpoint))
	for _, a := range ev.Attrs {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(redact(a.Value.String()))
		}
		attrs = append(attrs, a)
	}
	o.logger.LogAttrs(ctx, ev.Level, ev.Name, attrs...)
}

// Session tokens appear in upstream paths and query strings.
var (
	sessionPathPattern  = regexp.MustCompile(`(/session/)[^/?\s"]+`)
	sessionQueryPattern = regexp.MustCompile(`(?i)(session_?id=)[^&\s";]+`)
)

func redact(s string) string {
	s = sessionPathPattern.ReplaceAllString(s, "${1}[REDACTED]")
	return sessionQueryPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
