package sinks

import (
	"bytes"
	"strings"
	"testing"

	"gridvoice/server/logging"
)

func TestConsoleLineFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	err := sink.Write(logging.Event{
		Type:     "radio.talk_fanout",
		Actor:    logging.ParticipantRef("7"),
		Severity: logging.SeverityInfo,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, "[radio.talk_fanout]") || !strings.Contains(line, "actor=participant:7") {
		t.Fatalf("unexpected console line %q", line)
	}
	if strings.Contains(line, "tick=") {
		t.Fatalf("console line carries an unused field: %q", line)
	}
}
