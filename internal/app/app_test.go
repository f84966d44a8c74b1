package app

import (
	"context"
	"testing"

	server "gridvoice/server"
	"gridvoice/server/internal/config"
	"gridvoice/server/internal/world"
)

type stubWorld struct{}

func (stubWorld) StreamedIn() []world.EntityID                  { return nil }
func (stubWorld) Position(world.EntityID) (world.Vec3, bool)    { return world.Vec3{}, true }
func (stubWorld) Forward(world.EntityID) world.Vec3             { return world.Vec3{} }
func (stubWorld) CameraDirection() world.Vec3                   { return world.Vec3{} }
func (stubWorld) RoomKey(world.EntityID) int                    { return 0 }
func (stubWorld) HasClearLineOfSight(a, b world.EntityID) bool  { return true }
func (stubWorld) IsUnderwater(world.EntityID) bool              { return false }
func (stubWorld) Vehicle(world.EntityID) (world.VehicleInfo, bool) {
	return world.VehicleInfo{}, false
}
func (stubWorld) IsActionBlocked(world.EntityID) bool { return false }

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	// Point at a closed port; the channel retries in the background and
	// the service stays usable without a backend.
	cfg.Backend.URL = "ws://127.0.0.1:1"
	svc, err := New(cfg, stubWorld{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(context.Background()); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return svc
}

func TestAddParticipantRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.AddParticipant(1, ParticipantHooks{World: stubWorld{}}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.AddParticipant(1, ParticipantHooks{World: stubWorld{}}); err == nil {
		t.Fatal("duplicate participant must be rejected")
	}
}

func TestAddParticipantRequiresWorld(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.AddParticipant(2, ParticipantHooks{}); err == nil {
		t.Fatal("missing world provider must be rejected")
	}
}

func TestDeliverAndBroadcastReachEngines(t *testing.T) {
	svc := newTestService(t)
	engine, err := svc.AddParticipant(1, ParticipantHooks{World: stubWorld{}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if engine == nil {
		t.Fatal("expected an engine handle")
	}
	// Unknown recipients are dropped, known ones dispatched; neither may
	// panic with live sessions.
	svc.Deliver(99, server.Event{Kind: server.EventLipsync, Target: 1})
	svc.Deliver(1, server.Event{Kind: server.EventLipsync, Target: 99, Flag: true})
	svc.Broadcast(server.Event{Kind: server.EventMuteTarget, Target: 99, Flag: true})
}

func TestRemoveParticipantIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.AddParticipant(1, ParticipantHooks{World: stubWorld{}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	svc.RemoveParticipant(1)
	svc.RemoveParticipant(1)
	if got := svc.Metrics().Value("participants"); got != 0 {
		t.Fatalf("participant gauge not cleared: %d", got)
	}
}
