package server

import (
	"gridvoice/server/internal/world"
)

// EventKind names a game event the engine reacts to. The dispatch table in
// the engine maps every kind to exactly one handler, so the full reaction
// set to any event is enumerable in one place.
type EventKind string

const (
	// EventVoiceClientsAdded announces voice identities of one or more
	// participants, on join or reconnect.
	EventVoiceClientsAdded EventKind = "voice_clients_added"
	// EventMuteTarget force-mutes or unmutes a participant everywhere.
	EventMuteTarget EventKind = "mute_target"
	// EventVoiceRangeChanged carries another participant's new voice range.
	EventVoiceRangeChanged EventKind = "voice_range_changed"
	// EventMaxVoiceRangeChanged adjusts the local participant's range cap.
	EventMaxVoiceRangeChanged EventKind = "max_voice_range_changed"
	// EventLipsync mirrors a remote participant's talk state.
	EventLipsync EventKind = "lipsync"

	// EventRadioFrequencySet confirms a channel's frequency assignment.
	EventRadioFrequencySet EventKind = "radio_frequency_set"
	// EventRadioTalking carries a remote talk state change on a frequency.
	EventRadioTalking EventKind = "radio_talking"
	// EventRadioMuteState confirms a local channel mute toggle.
	EventRadioMuteState EventKind = "radio_mute_state"
	// EventRadioEnabledChanged mirrors a remote radio power toggle.
	EventRadioEnabledChanged EventKind = "radio_enabled_changed"
	// EventRadioWhisperTargets carries the exact recipient set for a talk
	// event in whisper mode.
	EventRadioWhisperTargets EventKind = "radio_whisper_targets"

	// EventPhoneLink toggles a phone link with a peer.
	EventPhoneLink EventKind = "phone_link"
	// EventMutedOnPhone mirrors a remote mute-on-phone flag.
	EventMutedOnPhone EventKind = "muted_on_phone"
	// EventPhoneSpeaker publishes a remote phone-speaker member list; an
	// empty list disables the broadcast.
	EventPhoneSpeaker EventKind = "phone_speaker"

	// EventMegaphoneChanged mirrors a remote megaphone toggle.
	EventMegaphoneChanged EventKind = "megaphone_changed"
	// EventIntercomChanged toggles an intercom group.
	EventIntercomChanged EventKind = "intercom_changed"

	// EventEntityCreated fires when an entity streams in.
	EventEntityCreated EventKind = "entity_created"
	// EventEntityDestroyed fires when an entity streams out or disconnects.
	EventEntityDestroyed EventKind = "entity_destroyed"
)

// Event is the uniform payload handed to the dispatch table. Only the
// fields relevant to the kind are set.
type Event struct {
	Kind EventKind

	Target world.EntityID
	Flag   bool

	Channel    int
	Step       int
	Frequency  string
	Range      float64
	ShortRange bool
	ErrorLevel float64
	Historical bool

	Clients []VoiceClientInfo
	IDs     []world.EntityID
}

// newDispatchTable enumerates every reaction the engine has to incoming
// game events.
func (e *Engine) newDispatchTable() map[EventKind]func(Event) {
	return map[EventKind]func(Event){
		EventVoiceClientsAdded:    e.handleVoiceClientsAdded,
		EventMuteTarget:           e.handleMuteTarget,
		EventVoiceRangeChanged:    e.handleVoiceRangeChanged,
		EventMaxVoiceRangeChanged: e.handleMaxVoiceRangeChanged,
		EventLipsync:              e.handleLipsync,
		EventRadioFrequencySet:    e.handleRadioFrequencySet,
		EventRadioTalking:         e.handleRadioTalking,
		EventRadioMuteState:       e.handleRadioMuteState,
		EventRadioEnabledChanged:  e.handleRadioEnabledChanged,
		EventRadioWhisperTargets:  e.handleRadioWhisperTargets,
		EventPhoneLink:            e.handlePhoneLink,
		EventMutedOnPhone:         e.handleMutedOnPhone,
		EventPhoneSpeaker:         e.handlePhoneSpeaker,
		EventMegaphoneChanged:     e.handleMegaphoneChanged,
		EventIntercomChanged:      e.handleIntercomChanged,
		EventEntityCreated:        e.handleEntityCreated,
		EventEntityDestroyed:      e.handleEntityDestroyed,
	}
}

// Dispatch routes one game event through the dispatch table. Unknown kinds
// are logged and dropped.
func (e *Engine) Dispatch(ev Event) {
	handler, ok := e.handlers[ev.Kind]
	if !ok {
		e.logf("engine: no handler for event kind %q", ev.Kind)
		return
	}
	handler(ev)
}
