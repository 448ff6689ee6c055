package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"warchief/server/logging"
)

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	err := sink.Write(logging.Event{
		Type:     "macro.cast_issued",
		Tick:     12,
		Actor:    logging.Character("hero"),
		Targets:  []logging.EntityRef{{ID: "dummy", Kind: logging.EntityKindCharacter}},
		Severity: logging.SeverityInfo,
		Payload:  map[string]string{"ability": "fireball"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[macro.cast_issued]", "tick=12", "actor=character:hero", "targets=character:dummy", `"ability":"fireball"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for tick := uint64(1); tick <= 2; tick++ {
		if err := sink.Write(logging.Event{Type: "macro.completed", Tick: tick, Time: stamp, Severity: logging.SeverityWarn, CommandID: "cmd-1"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["severity"] != "warn" || decoded["commandId"] != "cmd-1" || decoded["tick"] != float64(2) {
		t.Fatalf("unexpected wire object %v", decoded)
	}
}

func TestJSONBuffersUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, time.Hour)
	if err := sink.Write(logging.Event{Type: "macro.started"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected output to stay buffered, got %q", buf.String())
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "macro.started") {
		t.Fatalf("expected close to flush, got %q", buf.String())
	}
}

func TestMemoryFiltersAndResets(t *testing.T) {
	sink := NewMemory()
	_ = sink.Write(logging.Event{Type: "macro.started"})
	_ = sink.Write(logging.Event{Type: "macro.stopped"})
	_ = sink.Write(logging.Event{Type: "macro.started"})

	if got := len(sink.OfType("macro.started")); got != 2 {
		t.Fatalf("expected 2 started events, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected reset to clear events, got %d", got)
	}
}
