package server

import (
	"gridvoice/server/internal/control"
	"gridvoice/server/internal/world"
)

// Muffling intensities applied by the frame builder. Room separation
// dominates; closed vehicles stack once per side.
const (
	muffleRoomIntensity    = 10
	muffleVehicleIntensity = 3
)

// runFrame builds and sends one positional frame. Called from the frame
// task every FrameInterval once the session has joined.
func (e *Engine) runFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runFrameLocked()
}

func (e *Engine) runFrameLocked() {
	if !e.joined {
		return
	}
	self, ok := e.registry.Get(e.self)
	if !ok || self.ClientID == 0 {
		return
	}
	selfPos, ok := e.deps.World.Position(e.self)
	if !ok {
		return
	}
	if e.megaphoneActive && !e.megaphoneUsableLocked() {
		e.setMegaphoneLocked(false)
	}
	selfRoom := e.deps.World.RoomKey(e.self)
	selfClosed, selfVehicle := e.closedVehicleLocked(e.self)

	// Keyed by client id so a phone speaker record replaces the ambient
	// record of the same participant instead of duplicating it.
	ambient := make(map[int]control.FrameEntry)
	overlay := make(map[int]control.FrameEntry)
	// A listener muted on their own call, or force-muted, hears no
	// broadcast audio regardless of range.
	wantSpeaker := make(map[world.EntityID]struct{})
	hearSpeaker := !self.MutedOnPhone && !self.ForceMuted

	for _, id := range e.deps.World.StreamedIn() {
		entity, ok := e.registry.Get(id)
		if !ok || entity.ClientID == 0 {
			continue
		}
		pos, ok := e.deps.World.Position(id)
		if !ok {
			continue
		}

		muffle := 0.0
		if e.deps.World.RoomKey(id) != selfRoom && !e.deps.World.HasClearLineOfSight(e.self, id) {
			muffle = muffleRoomIntensity
		} else {
			otherClosed, otherVehicle := e.closedVehicleLocked(id)
			if selfVehicle == 0 || selfVehicle != otherVehicle {
				if selfClosed {
					muffle += muffleVehicleIntensity
				}
				if otherClosed {
					muffle += muffleVehicleIntensity
				}
			}
		}

		ambient[entity.ClientID] = control.FrameEntry{
			ClientID:     entity.ClientID,
			Position:     pos,
			Direction:    e.deps.World.Forward(id),
			Range:        entity.Range,
			IsUnderwater: e.deps.World.IsUnderwater(id),
			MuffleLevel:  muffle,
			IsMuted:      entity.ForceMuted,
		}

		if hearSpeaker && len(entity.PhoneSpeakerMembers) > 0 && pos.DistanceTo(selfPos) <= e.settings.MaxPhoneSpeakerRange {
			e.collectSpeakerOverlayLocked(entity, pos, overlay, wantSpeaker)
		}
	}

	e.reconcileSpeakerLinksLocked(wantSpeaker)

	for clientID, entry := range overlay {
		ambient[clientID] = entry
	}
	players := make([]control.FrameEntry, 0, len(ambient))
	for _, entry := range ambient {
		players = append(players, entry)
	}

	e.sender.Send(control.Request{
		Base: control.Base{RequestType: control.RequestTypeIngame},
		Player: &control.PlayerFrame{
			Direction:    e.deps.World.CameraDirection(),
			Position:     selfPos,
			Range:        self.Range,
			IsUnderwater: e.deps.World.IsUnderwater(e.self),
			IsMuted:      self.ForceMuted || e.isMuted,
			Players:      players,
		},
	})
}

// collectSpeakerOverlayLocked projects a broadcaster's remote call members
// to the broadcaster's position with speaker range. Members we are already
// on a call with keep their direct link; ourselves are never projected.
func (e *Engine) collectSpeakerOverlayLocked(holder *Entity, holderPos world.Vec3, overlay map[int]control.FrameEntry, want map[world.EntityID]struct{}) {
	for _, memberID := range holder.PhoneSpeakerMembers {
		if memberID == e.self {
			continue
		}
		if _, inCall := e.phonePeers[memberID]; inCall {
			continue
		}
		member, ok := e.registry.Get(memberID)
		if !ok || member.ClientID == 0 {
			continue
		}
		want[memberID] = struct{}{}
		overlay[member.ClientID] = control.FrameEntry{
			ClientID: member.ClientID,
			Position: holderPos,
			Range:    e.settings.MaxPhoneSpeakerRange,
			IsMuted:  member.ForceMuted,
		}
	}
}

// reconcileSpeakerLinksLocked toggles one receiver link per call member
// entering or leaving broadcast range since the previous frame.
func (e *Engine) reconcileSpeakerLinksLocked(want map[world.EntityID]struct{}) {
	for id := range want {
		if _, applied := e.speakerApplied[id]; applied {
			continue
		}
		e.links.SetLink([]world.EntityID{id}, DevicePhoneSpeaker, true, LinkOptions{
			Range:      e.settings.MaxPhoneSpeakerRange,
			SelfMode:   ModeReceiver,
			OthersMode: ModeSender,
		})
		e.speakerApplied[id] = struct{}{}
	}
	for id := range e.speakerApplied {
		if _, still := want[id]; still {
			continue
		}
		e.links.SetLink([]world.EntityID{id}, DevicePhoneSpeaker, false, LinkOptions{
			SelfMode:   ModeReceiver,
			OthersMode: ModeSender,
		})
		delete(e.speakerApplied, id)
	}
}

// closedVehicleLocked reports whether the entity sits in an acoustically
// closed vehicle, and which vehicle. Allow-listed models count as open.
func (e *Engine) closedVehicleLocked(id world.EntityID) (bool, uint64) {
	vehicle, ok := e.deps.World.Vehicle(id)
	if !ok {
		return false, 0
	}
	if !vehicle.Closed {
		return false, vehicle.ID
	}
	if _, open := e.openVehicles[vehicle.Model]; open {
		return false, vehicle.ID
	}
	return true, vehicle.ID
}
