package logging_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"warchief/server/logging"
	"warchief/server/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.Memory) {
	t.Helper()
	memory := sinks.NewMemory()
	clock := logging.ClockFunc(func() time.Time { return time.Unix(100, 0).UTC() })
	router := logging.NewRouter(clock, cfg, log.New(io.Discard, "", 0), []logging.NamedSink{{Name: "memory", Sink: memory}})
	return router, memory
}

func TestRouterDeliversOnClose(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "warchief"}
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "macro.started", Tick: 3, Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityInfo})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close router: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if !event.Time.Equal(time.Unix(100, 0)) {
		t.Fatalf("expected clock time to be stamped, got %v", event.Time)
	}
	if event.Extra["service"] != "warchief" {
		t.Fatalf("expected router fields to be merged, got %v", event.Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 routed event, got %d", stats.EventsTotal)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "macro.step_skipped", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "macro.cast_retry", Severity: logging.SeverityWarn})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close router: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "macro.cast_retry" {
		t.Fatalf("expected only the warning to pass, got %+v", events)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close router: %v", err)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("expected second close to be a no-op, got %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "macro.started"})
	if got := len(memory.Events()); got != 0 {
		t.Fatalf("expected no events after close, got %d", got)
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected named sink lookup to return the memory sink")
	}
	if router.Sink("missing") != nil {
		t.Fatalf("expected unknown sink lookup to return nil")
	}
}

func TestWithFieldsKeepsEventValues(t *testing.T) {
	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		got = event
	}), map[string]any{"region": "eu", "shard": 1})

	pub.Publish(context.Background(), logging.Event{Type: "macro.started"}.WithExtra("shard", 7))
	if got.Extra["region"] != "eu" {
		t.Fatalf("expected region field, got %v", got.Extra)
	}
	if got.Extra["shard"] != 7 {
		t.Fatalf("expected event value to win, got %v", got.Extra["shard"])
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"":        logging.SeverityInfo,
		"debug":   logging.SeverityDebug,
		" WARN ":  logging.SeverityWarn,
		"warning": logging.SeverityWarn,
		"error":   logging.SeverityError,
	}
	for raw, want := range cases {
		got, err := logging.ParseSeverity(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("expected %q to parse as %s, got %s", raw, want, got)
		}
	}
	if _, err := logging.ParseSeverity("loud"); err == nil {
		t.Fatalf("expected unknown severity to fail")
	}
}
