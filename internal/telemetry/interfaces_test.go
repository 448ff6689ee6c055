package telemetry

import (
	"bytes"
	"log"
	"sync"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WrapLogger(log.New(&buf, "", 0))
		logger.Printf("macro %s started", "burst")
		if got := buf.String(); got != "macro burst started\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})

	t.Run("nil func", func(t *testing.T) {
		var fn LoggerFunc
		fn.Printf("ignored")
	})
}

func TestCountersAddAndStore(t *testing.T) {
	var counters Counters
	counters.Add("casts", 2)
	counters.Store("active_runs", 5)
	counters.Add("casts", 3)

	snapshot := counters.Snapshot()
	if got := snapshot["casts"]; got != 5 {
		t.Fatalf("expected casts=5, got %d", got)
	}
	if got := snapshot["active_runs"]; got != 5 {
		t.Fatalf("expected active_runs=5, got %d", got)
	}
	keys := counters.Keys()
	if len(keys) != 2 || keys[0] != "active_runs" || keys[1] != "casts" {
		t.Fatalf("unexpected keys %v", keys)
	}

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	nilCounters.Store("ignored", 1)
	if len(nilCounters.Snapshot()) != 0 {
		t.Fatalf("expected nil counters to report nothing")
	}
	NopMetrics().Add("ignored", 1)
}

func TestCountersConcurrentAdd(t *testing.T) {
	var counters Counters
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counters.Add("ticks", 1)
			}
		}()
	}
	wg.Wait()
	if got := counters.Snapshot()["ticks"]; got != 800 {
		t.Fatalf("expected 800 ticks, got %d", got)
	}
}
