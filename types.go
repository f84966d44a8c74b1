// Package server implements the communication routing engine behind the
// in-game voice bridge: the unified model of comm devices, the radio
// channel/frequency state machine, the phone call graph, and the periodic
// proximity frame, all funneled through a single routing primitive into the
// control channel of the external voice backend.
package server

import (
	"gridvoice/server/internal/world"
)

// DeviceType names a comm device on the wire. The set is closed; proximity
// is implicit (carried by the periodic frame, never by a link).
type DeviceType string

const (
	DeviceRadio           DeviceType = "RADIO"
	DeviceMegaphone       DeviceType = "MEGAPHONE"
	DevicePhone           DeviceType = "PHONE"
	DevicePhoneSpeaker    DeviceType = "PHONE_SPEAKER"
	DeviceIntercom        DeviceType = "INTERCOM"
	DevicePhoneHistorical DeviceType = "PHONE_HISTORICAL"
)

// Valid reports whether the device type belongs to the closed set.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceRadio, DeviceMegaphone, DevicePhone, DevicePhoneSpeaker, DeviceIntercom, DevicePhoneHistorical:
		return true
	default:
		return false
	}
}

// DeviceMode governs the directionality of a member inside a link.
type DeviceMode string

const (
	ModeSender      DeviceMode = "SENDER"
	ModeReceiver    DeviceMode = "RECEIVER"
	ModeTransceiver DeviceMode = "TRANSCEIVER"
)

// StereoMode selects the output side for a radio channel.
type StereoMode string

const (
	StereoMonoLeft  StereoMode = "MONO_LEFT"
	StereoMonoRight StereoMode = "MONO_RIGHT"
	Stereo          StereoMode = "STEREO"
)

// UnsetFrequency marks a radio channel without an assigned frequency.
const UnsetFrequency = "0"

// voiceRangeSteps maps the 1–8 UI steps to meters.
var voiceRangeSteps = map[int]float64{
	1: 1,
	2: 3,
	3: 8,
	4: 15,
	5: 20,
	6: 25,
	7: 30,
	8: 40,
}

// MaxVoiceRangeStep is the top of the range step table.
const MaxVoiceRangeStep = 8

// VoiceRangeForStep resolves a UI step to meters, clamping into the table.
func VoiceRangeForStep(step int) float64 {
	if step < 1 {
		step = 1
	}
	if step > MaxVoiceRangeStep {
		step = MaxVoiceRangeStep
	}
	return voiceRangeSteps[step]
}

// Entity is the registry's fixed per-participant record. Fields mirror what
// routing decisions need; everything else stays with the world layer.
type Entity struct {
	ID world.EntityID

	// ClientID is the voice backend client id, zero until the participant
	// has joined the ingame voice channel.
	ClientID int

	Range      float64
	ForceMuted bool
	Talking    bool

	RadioEnabled bool
	OnPhone      bool
	MutedOnPhone bool

	// PhoneSpeakerMembers holds the call members whose audio this entity is
	// rebroadcasting to nearby listeners; nil when not broadcasting.
	PhoneSpeakerMembers []world.EntityID
}

// RadioChannel is the mutable per-slot radio state. Channels are allocated
// once per session; only these fields change.
type RadioChannel struct {
	Frequency string
	Volume    float64
	Stereo    StereoMode
	Muted     bool
}

func defaultRadioChannel() *RadioChannel {
	return &RadioChannel{
		Frequency: UnsetFrequency,
		Volume:    1,
		Stereo:    Stereo,
	}
}

// VoiceClientInfo is the payload announcing a participant's voice identity
// to other participants.
type VoiceClientInfo struct {
	ID         world.EntityID
	ClientID   int
	Range      float64
	ForceMuted bool
}

// ConnectInfo carries everything a participant engine needs to open its
// control channel session.
type ConnectInfo struct {
	ServerGUID      string
	IngameName      string
	IngameChannel   int
	DefaultChannel  int
	ChannelPassword string
}
