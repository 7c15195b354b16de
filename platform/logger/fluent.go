package logger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"realty_crm_backend/platform/config"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// poster is the subset of *fluent.Fluent used by FluentHandler.
type poster interface {
	Post(tag string, message interface{}) error
}

// FluentHandler ships slog records to a Fluentd/Fluent Bit forward input.
type FluentHandler struct {
	client poster
	tag    string
	level  slog.Level
	attrs  []slog.Attr
	prefix string
}

// DialFluent connects to a Fluent forward endpoint. The returned close
// function flushes buffered records.
func DialFluent(host string, port int, tag string) (*FluentHandler, func() error, error) {
	client, err := fluent.New(fluent.Config{
		FluentHost:   host,
		FluentPort:   port,
		Async:        true,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect fluent %s:%d: %w", host, port, err)
	}
	return &FluentHandler{client: client, tag: tag, level: slog.LevelInfo}, client.Close, nil
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	msg := make(map[string]interface{}, r.NumAttrs()+len(h.attrs)+3)
	msg["time"] = r.Time.Format(time.RFC3339Nano)
	msg["level"] = r.Level.String()
	msg["msg"] = r.Message
	for _, a := range h.attrs {
		msg[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		msg[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})
	return h.client.Post(h.tag, msg)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// FromConfig builds the process logger. When log shipping is configured
// records also go to Fluent; a failed dial falls back to console only.
// The returned close function is never nil.
func FromConfig(env string, cfg config.FluentConfig) (*Logger, func() error) {
	if !cfg.IsFluentEnabled() {
		return New(env), func() error { return nil }
	}

	sink, closeFn, err := DialFluent(cfg.GetFluentHost(), cfg.GetFluentPort(), cfg.GetFluentTag())
	if err != nil {
		log := New(env)
		log.Warn("fluent log shipping disabled", "error", err)
		return log, func() error { return nil }
	}
	return NewWithSink(env, sink), closeFn
}
