package server

import (
	"sync"
	"testing"

	"gridvoice/server/internal/control"
	"gridvoice/server/internal/world"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []control.Request
}

func (s *recordingSender) Send(req control.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
}

func (s *recordingSender) requests() []control.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]control.Request, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

func newTestRouter() (*LinkRouter, *Registry, *recordingSender) {
	reg := NewRegistry()
	sender := &recordingSender{}
	return NewLinkRouter(reg, sender, 1, nil), reg, sender
}

func TestSetLinkFiltersUnregisteredMembers(t *testing.T) {
	router, reg, sender := newTestRouter()
	reg.Upsert(VoiceClientInfo{ID: 1, ClientID: 100})
	reg.Upsert(VoiceClientInfo{ID: 2, ClientID: 200})
	reg.Ensure(3)

	if !router.SetLink([]world.EntityID{2, 3, 4}, DeviceRadio, true, LinkOptions{Channel: 1}) {
		t.Fatal("expected a wire message")
	}
	reqs := sender.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(reqs))
	}
	members := reqs[0].CommDevice.Members
	if len(members) != 1 || members[0].ClientID != 200 {
		t.Fatalf("unregistered entities leaked into the member list: %+v", members)
	}
}

func TestSetLinkSelfFirstWithModes(t *testing.T) {
	router, reg, sender := newTestRouter()
	reg.Upsert(VoiceClientInfo{ID: 1, ClientID: 100})
	reg.Upsert(VoiceClientInfo{ID: 2, ClientID: 200})

	router.SetLink([]world.EntityID{2}, DeviceRadio, true, LinkOptions{
		Channel:    3,
		SelfMode:   ModeSender,
		OthersMode: ModeReceiver,
		ErrorLevel: 0.4,
	})
	reqs := sender.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one message, got %d", len(reqs))
	}
	device := reqs[0].CommDevice
	if device == nil || !device.On || device.Channel != 3 {
		t.Fatalf("unexpected link payload: %+v", device)
	}
	if len(device.Members) != 2 {
		t.Fatalf("expected self plus one target, got %v", device.Members)
	}
	if device.Members[0].ClientID != 100 || device.Members[0].Mode != string(ModeSender) {
		t.Fatalf("acting entity not first with its own mode: %+v", device.Members[0])
	}
	if device.Members[1].Mode != string(ModeReceiver) || device.Members[1].ErrorLevel != 0.4 {
		t.Fatalf("target member wrong: %+v", device.Members[1])
	}
}

func TestSetLinkInvalidDeviceIsNoOp(t *testing.T) {
	router, reg, sender := newTestRouter()
	reg.Upsert(VoiceClientInfo{ID: 2, ClientID: 200})

	if router.SetLink([]world.EntityID{2}, DeviceType("SMOKE_SIGNAL"), true, LinkOptions{}) {
		t.Fatal("invalid device type must not send")
	}
	if len(sender.requests()) != 0 {
		t.Fatal("invalid device type emitted a message")
	}
}

func TestSetLinkEmptyAfterFilter(t *testing.T) {
	router, _, sender := newTestRouter()

	if router.SetLink([]world.EntityID{9}, DeviceRadio, false, LinkOptions{}) {
		t.Fatal("fully filtered member list must be a no-op by default")
	}
	if !router.SetLink(nil, DeviceRadio, false, LinkOptions{EmptyOK: true}) {
		t.Fatal("EmptyOK must force the message out")
	}
	reqs := sender.requests()
	if len(reqs) != 1 || len(reqs[0].CommDevice.Members) != 0 {
		t.Fatalf("expected one empty-member message, got %+v", reqs)
	}
}

func TestSetDeviceVolumeClamps(t *testing.T) {
	router, _, sender := newTestRouter()
	router.SetDeviceVolume(DeviceRadio, 1.8, 2)
	reqs := sender.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one message, got %d", len(reqs))
	}
	settings := reqs[0].CommDeviceSettings
	if settings == nil || settings.Volume == nil || *settings.Volume != 1 {
		t.Fatalf("volume not clamped: %+v", settings)
	}
}

func TestSendDeviceLeftAlwaysSends(t *testing.T) {
	router, _, sender := newTestRouter()
	router.SendDeviceLeft(nil, DeviceRadio, 4)
	reqs := sender.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one message, got %d", len(reqs))
	}
	left := reqs[0].CommDeviceLeft
	if left == nil || left.Channel != 4 || len(left.ClientIDs) != 0 {
		t.Fatalf("unexpected leave payload: %+v", left)
	}
}
