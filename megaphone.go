package server

import (
	"gridvoice/server/internal/world"
)

// SetMegaphoneAllowed grants or revokes megaphone use, typically tied to
// occupying a vehicle seat that carries one. Revoking while active shuts
// the megaphone off first.
func (e *Engine) SetMegaphoneAllowed(allowed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.canUseMegaphone == allowed {
		return
	}
	if !allowed && e.megaphoneActive {
		e.setMegaphoneLocked(false)
	}
	e.canUseMegaphone = allowed
}

// SetMegaphoneActive toggles the local megaphone. Use is gated by either
// sitting in a vehicle seat that carries one or holding the explicit
// capability. Repeated calls with the same state are no-ops.
func (e *Engine) SetMegaphoneActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if active && (!e.joined || !e.megaphoneUsableLocked()) {
		return
	}
	if e.megaphoneActive == active {
		return
	}
	e.setMegaphoneLocked(active)
}

func (e *Engine) megaphoneUsableLocked() bool {
	if e.canUseMegaphone {
		return true
	}
	vehicle, ok := e.deps.World.Vehicle(e.self)
	return ok && vehicle.HasSeat
}

func (e *Engine) setMegaphoneLocked(active bool) {
	e.megaphoneActive = active
	e.deps.Server.UseMegaphone(active)
}

func (e *Engine) handleMegaphoneChanged(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rng := ev.Range
	if rng == 0 {
		rng = e.settings.MegaphoneRange
	}
	e.links.SetLink([]world.EntityID{ev.Target}, DeviceMegaphone, ev.Flag, LinkOptions{
		SelfMode:   ModeReceiver,
		OthersMode: ModeSender,
		Range:      rng,
	})
}

func (e *Engine) handleIntercomChanged(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.links.SetLink(ev.IDs, DeviceIntercom, ev.Flag, LinkOptions{})
}
