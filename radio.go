package server

import (
	"gridvoice/server/internal/world"
)

// volumeStep is the increment applied by the volume up/down controls.
const volumeStep = 0.17

// radioState is the engine's view of the local radio. Channel membership
// tracks which remote participants the backend currently links per channel,
// so teardown on frequency release covers exactly the linked set.
type radioState struct {
	enabled bool
	inited  bool
	talking bool

	activeChannel  int
	talkingChannel int

	channels map[int]*RadioChannel
	members  map[int]map[world.EntityID]struct{}
}

func newRadioState() radioState {
	return radioState{
		activeChannel: 1,
		channels:      make(map[int]*RadioChannel),
		members:       make(map[int]map[world.EntityID]struct{}),
	}
}

func (r *radioState) channel(n int) *RadioChannel {
	ch, ok := r.channels[n]
	if !ok {
		ch = defaultRadioChannel()
		r.channels[n] = ch
	}
	return ch
}

func (r *radioState) memberSet(n int) map[world.EntityID]struct{} {
	set, ok := r.members[n]
	if !ok {
		set = make(map[world.EntityID]struct{})
		r.members[n] = set
	}
	return set
}

// channelForFrequency resolves which local channel is tuned to the given
// frequency, or 0 when none is.
func (r *radioState) channelForFrequency(freq string) int {
	if freq == UnsetFrequency {
		return 0
	}
	for n, ch := range r.channels {
		if ch.Frequency == freq {
			return n
		}
	}
	return 0
}

// SetRadioEnabled powers the radio on or off. Powering off releases every
// tuned channel on the backend and tells the server to drop the
// participant from all frequencies.
func (e *Engine) SetRadioEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.joined || e.radio.enabled == enabled {
		return
	}
	e.radio.enabled = enabled
	if !enabled {
		if e.radio.talking {
			e.stopRadioTalkLocked()
		}
		for n, ch := range e.radio.channels {
			if ch.Frequency == UnsetFrequency {
				continue
			}
			e.releaseChannelLocked(n)
		}
	}
	e.deps.Server.EnableRadio(enabled)
	e.deps.UI.RadioStateChanged(enabled)
}

// RequestRadioFrequency asks the server to tune a channel. The local state
// only changes once the server confirms with a frequency-set event.
func (e *Engine) RequestRadioFrequency(channel int, frequency string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled || !e.validChannelLocked(channel) {
		return
	}
	e.deps.Server.ChangeRadioFrequency(channel, frequency)
}

// SetActiveRadioChannel selects which channel the talk control keys.
func (e *Engine) SetActiveRadioChannel(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.validChannelLocked(channel) || e.radio.activeChannel == channel {
		return
	}
	e.radio.activeChannel = channel
	e.deps.UI.RadioChannelChanged(channel, *e.radio.channel(channel))
}

// ChangeRadioChannelVolume nudges a channel's receive volume up or down
// and pushes the new value to the backend.
func (e *Engine) ChangeRadioChannelVolume(channel int, higher bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled || !e.validChannelLocked(channel) {
		return
	}
	ch := e.radio.channel(channel)
	step := volumeStep
	if !higher {
		step = -volumeStep
	}
	ch.Volume = clamp(ch.Volume+step, 0, 1)
	e.links.SetDeviceVolume(DeviceRadio, ch.Volume, channel)
	e.deps.UI.RadioChannelChanged(channel, *ch)
}

// CycleRadioChannelStereo rotates a channel between stereo, left-only and
// right-only output.
func (e *Engine) CycleRadioChannelStereo(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled || !e.validChannelLocked(channel) {
		return
	}
	ch := e.radio.channel(channel)
	switch ch.Stereo {
	case Stereo:
		ch.Stereo = StereoMonoLeft
	case StereoMonoLeft:
		ch.Stereo = StereoMonoRight
	default:
		ch.Stereo = Stereo
	}
	e.links.SetDeviceStereo(DeviceRadio, ch.Stereo, channel)
	e.deps.UI.RadioChannelChanged(channel, *ch)
}

// RequestRadioChannelMute asks the server to toggle a channel's mute. The
// flag lands via a mute-state event once the server has updated the
// frequency map.
func (e *Engine) RequestRadioChannelMute(channel int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled || !e.validChannelLocked(channel) {
		return
	}
	e.deps.Server.MuteRadioChannel(channel)
}

// SetRadioTalking starts or stops transmitting on the active channel.
// Starting flags the talk state immediately, then waits on the talk cue
// before announcing to the server; a stop during the wait rolls the start
// back without ever announcing.
func (e *Engine) SetRadioTalking(talking bool) {
	e.mu.Lock()
	if talking == e.radio.talking {
		e.mu.Unlock()
		return
	}
	if !talking {
		e.stopRadioTalkLocked()
		e.mu.Unlock()
		return
	}
	if !e.canTransmitLocked() {
		e.mu.Unlock()
		return
	}
	channel := e.radio.activeChannel
	e.radio.talking = true
	e.radio.talkingChannel = channel
	e.mu.Unlock()

	e.deps.Cues.StartRadioTalkCue(func(ready bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.radio.talking || e.radio.talkingChannel != channel {
			return
		}
		if !ready {
			e.radio.talking = false
			return
		}
		e.announceRadioTalkLocked(true)
		e.startTaskLocked(taskTalkAnnounce, e.settings.TalkAnnounceInterval, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.radio.talking {
				e.announceRadioTalkLocked(true)
			}
		})
		e.deps.UI.RadioTalkingChanged(true)
	})
}

func (e *Engine) canTransmitLocked() bool {
	if !e.joined || !e.radio.enabled || !e.radio.inited || e.isMuted {
		return false
	}
	if e.deps.World.IsActionBlocked(e.self) {
		return false
	}
	ch := e.radio.channel(e.radio.activeChannel)
	return ch.Frequency != UnsetFrequency && !ch.Muted
}

func (e *Engine) stopRadioTalkLocked() {
	wasAnnounced := e.radio.talking
	e.radio.talking = false
	e.stopTaskLocked(taskTalkAnnounce)
	e.deps.Cues.StopRadioTalkCue()
	if wasAnnounced {
		e.announceRadioTalkLocked(false)
		e.deps.UI.RadioTalkingChanged(false)
	}
}

func (e *Engine) announceRadioTalkLocked(talking bool) {
	e.deps.Server.RadioTalking(talking, e.radio.talkingChannel, e.towerDistanceLocked())
}

// towerDistanceLocked reports the distance to the nearest signal tower, or
// -1 when no tower grid is configured or none is in range.
func (e *Engine) towerDistanceLocked() float64 {
	if !e.towers.Configured() {
		return -1
	}
	pos, ok := e.deps.World.Position(e.self)
	if !ok {
		return -1
	}
	distance, _, ok := e.towers.Nearest(pos)
	if !ok {
		return -1
	}
	return distance
}

// releaseChannelLocked tears down every backend link on a channel and
// forgets its members. The frequency itself stays as the server left it.
func (e *Engine) releaseChannelLocked(channel int) {
	set := e.radio.memberSet(channel)
	ids := make([]world.EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	e.links.SendDeviceLeft(ids, DeviceRadio, channel)
	delete(e.radio.members, channel)
}

func (e *Engine) validChannelLocked(channel int) bool {
	return channel >= 1 && channel <= e.settings.MaxRadioChannels
}

// replayRadioSettingsLocked pushes volume and stereo for every tuned
// channel to the backend, used after a backend reconnect wipes its state.
func (e *Engine) replayRadioSettingsLocked() {
	for n, ch := range e.radio.channels {
		if ch.Frequency == UnsetFrequency {
			continue
		}
		e.links.SetDeviceVolume(DeviceRadio, ch.Volume, n)
		e.links.SetDeviceStereo(DeviceRadio, ch.Stereo, n)
	}
}

func (e *Engine) handleRadioFrequencySet(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.validChannelLocked(ev.Channel) {
		return
	}
	ch := e.radio.channel(ev.Channel)
	if ch.Frequency != UnsetFrequency && ch.Frequency != ev.Frequency {
		// Leave before join. Whatever was audible on the old frequency is
		// released before the channel retunes.
		if e.radio.talking && e.radio.talkingChannel == ev.Channel {
			e.stopRadioTalkLocked()
		}
		e.releaseChannelLocked(ev.Channel)
	}
	ch.Frequency = ev.Frequency
	if ev.Frequency != UnsetFrequency && !e.radio.inited {
		e.radio.inited = true
	}
	e.deps.UI.RadioChannelChanged(ev.Channel, *ch)
}

func (e *Engine) handleRadioTalking(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled {
		return
	}
	channel := e.radio.channelForFrequency(ev.Frequency)
	if channel == 0 {
		return
	}
	if e.radio.channel(channel).Muted {
		return
	}
	set := e.radio.memberSet(channel)
	if ev.Flag {
		set[ev.Target] = struct{}{}
	} else {
		delete(set, ev.Target)
	}
	e.links.SetLink([]world.EntityID{ev.Target}, DeviceRadio, ev.Flag, LinkOptions{
		Channel:    channel,
		SelfMode:   ModeReceiver,
		OthersMode: ModeSender,
		ErrorLevel: ev.ErrorLevel,
	})
	e.deps.Cues.SetLips(ev.Target, ev.Flag)
}

func (e *Engine) handleRadioWhisperTargets(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.radio.enabled {
		return
	}
	opts := LinkOptions{
		Channel:    e.radio.talkingChannel,
		OthersMode: ModeReceiver,
	}
	if ev.Flag {
		opts.SelfMode = ModeSender
	}
	e.links.SetLink(ev.IDs, DeviceRadio, ev.Flag, opts)
}

func (e *Engine) handleRadioMuteState(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.validChannelLocked(ev.Channel) {
		return
	}
	ch := e.radio.channel(ev.Channel)
	ch.Muted = ev.Flag
	if ev.Flag {
		if e.radio.talking && e.radio.talkingChannel == ev.Channel {
			e.stopRadioTalkLocked()
		}
		// Muting releases everyone currently audible on the channel.
		// Unmuting does not relink them; the next talk event does.
		set := e.radio.memberSet(ev.Channel)
		if len(set) > 0 {
			ids := make([]world.EntityID, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			e.links.SetLink(ids, DeviceRadio, false, LinkOptions{
				Channel:    ev.Channel,
				SelfMode:   ModeReceiver,
				OthersMode: ModeSender,
			})
		}
		delete(e.radio.members, ev.Channel)
	}
	e.deps.UI.RadioChannelChanged(ev.Channel, *ch)
}

func (e *Engine) handleRadioEnabledChanged(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Flag {
		return
	}
	// A powered-off remote radio can no longer be heard on any channel.
	for n, set := range e.radio.members {
		if _, ok := set[ev.Target]; !ok {
			continue
		}
		e.links.SetLink([]world.EntityID{ev.Target}, DeviceRadio, false, LinkOptions{
			Channel:    n,
			SelfMode:   ModeReceiver,
			OthersMode: ModeSender,
		})
		delete(set, ev.Target)
	}
}
