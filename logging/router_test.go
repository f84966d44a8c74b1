package logging_test

import (
	"context"
	"testing"
	"time"

	"gridvoice/server/logging"
	"gridvoice/server/logging/sinks"
)

func TestRouterForwardsToSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityDebug

	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "radio.talk_fanout",
		Actor:    logging.ParticipantRef("p-1"),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryRadio,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("failed to close router: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "radio.talk_fanout" {
		t.Fatalf("unexpected event type %q", events[0].Type)
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected router to stamp event time")
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 {
		t.Fatalf("expected 1 routed event, got %d", stats.EventsTotal)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn

	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "network.send_dropped",
		Severity: logging.SeverityDebug,
	})
	router.Publish(context.Background(), logging.Event{
		Type:     "network.channel_lost",
		Severity: logging.SeverityWarn,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("failed to close router: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the warn event, got %d events", len(events))
	}
	if events[0].Type != "network.channel_lost" {
		t.Fatalf("unexpected surviving event %q", events[0].Type)
	}
}
