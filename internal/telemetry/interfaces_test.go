package telemetry

import (
	"bytes"
	"log"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); got != "hello world\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})
}

func TestCounters(t *testing.T) {
	counters := NewCounters()

	counters.Add("control_reconnects", 2)
	counters.Store("control_reconnects", 5)
	counters.Add("control_reconnects", 3)

	if got := counters.Value("control_reconnects"); got != 8 {
		t.Fatalf("unexpected counter value: %d", got)
	}

	counters.Add("frames_sent", 1)
	keys := counters.Keys()
	if len(keys) != 2 || keys[0] != "control_reconnects" || keys[1] != "frames_sent" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	// Ensure nil receivers do not panic.
	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	nilCounters.Store("ignored", 1)
	if nilCounters.Value("ignored") != 0 {
		t.Fatalf("expected zero value from nil counters")
	}
}
