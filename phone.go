package server

import (
	"gridvoice/server/internal/world"
)

// phonePeer tracks one active call edge from the local participant's
// perspective. A muted peer stays in the call but has no live link.
type phonePeer struct {
	historical bool
	muted      bool
}

func (e *Engine) phoneDevice(historical bool) DeviceType {
	if historical {
		return DevicePhoneHistorical
	}
	return DevicePhone
}

func (e *Engine) handlePhoneLink(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	device := e.phoneDevice(ev.Historical)
	if ev.Flag {
		peer, ok := e.phonePeers[ev.Target]
		if !ok {
			peer = &phonePeer{historical: ev.Historical}
			e.phonePeers[ev.Target] = peer
		}
		peer.historical = ev.Historical
		if !peer.muted {
			e.links.SetLink([]world.EntityID{ev.Target}, device, true, LinkOptions{})
		}
	} else {
		delete(e.phonePeers, ev.Target)
		e.links.SetLink([]world.EntityID{ev.Target}, device, false, LinkOptions{})
	}
	e.registry.Ensure(ev.Target).OnPhone = ev.Flag
	e.registry.Ensure(e.self).OnPhone = len(e.phonePeers) > 0
}

// handleMutedOnPhone suspends or restores the link to a call peer without
// ending the call. Restoring is a no-op if the call ended meanwhile.
func (e *Engine) handleMutedOnPhone(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Ensure(ev.Target).MutedOnPhone = ev.Flag
	peer, ok := e.phonePeers[ev.Target]
	if !ok {
		return
	}
	peer.muted = ev.Flag
	e.links.SetLink([]world.EntityID{ev.Target}, e.phoneDevice(peer.historical), !ev.Flag, LinkOptions{})
}

// handlePhoneSpeaker records which call members an entity rebroadcasts over
// its phone speaker. The periodic frame decides audibility by proximity; an
// empty list ends the broadcast.
func (e *Engine) handlePhoneSpeaker(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entity := e.registry.Ensure(ev.Target)
	if len(ev.IDs) == 0 {
		entity.PhoneSpeakerMembers = nil
		return
	}
	entity.PhoneSpeakerMembers = append([]world.EntityID(nil), ev.IDs...)
}
