package logger

import (
	"context"
	"log/slog"
	"testing"
)

type recordingPoster struct {
	tag  string
	msgs []map[string]interface{}
}

func (p *recordingPoster) Post(tag string, message interface{}) error {
	p.tag = tag
	p.msgs = append(p.msgs, message.(map[string]interface{}))
	return nil
}

func TestFluentHandlerFlattensAttrsAndGroups(t *testing.T) {
	rec := &recordingPoster{}
	h := &FluentHandler{client: rec, tag: "crm.matching", level: slog.LevelInfo}

	log := slog.New(h).With("client_id", "acme").WithGroup("run")
	log.Info("matching finished", "matches", 3)
	log.Debug("dropped")

	if len(rec.msgs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.msgs))
	}
	msg := rec.msgs[0]
	if rec.tag != "crm.matching" {
		t.Fatalf("expected tag crm.matching, got %q", rec.tag)
	}
	if msg["client_id"] != "acme" {
		t.Fatalf("expected client_id attr, got %#v", msg)
	}
	if msg["run.matches"] != int64(3) {
		t.Fatalf("expected grouped matches attr, got %#v", msg["run.matches"])
	}
	if msg["msg"] != "matching finished" {
		t.Fatalf("unexpected msg %#v", msg["msg"])
	}
}

func TestFanoutSkipsDisabledHandlers(t *testing.T) {
	rec := &recordingPoster{}
	h := fanout{&FluentHandler{client: rec, tag: "t", level: slog.LevelWarn}}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("expected info to be disabled")
	}
	slog.New(h).Warn("slow query")
	if len(rec.msgs) != 1 {
		t.Fatalf("expected warn to be forwarded, got %d records", len(rec.msgs))
	}
}
