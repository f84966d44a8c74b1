package server

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"gridvoice/server/internal/telemetry"
	"gridvoice/server/internal/world"
	"gridvoice/server/logging"
	loglifecycle "gridvoice/server/logging/lifecycle"
	logradio "gridvoice/server/logging/radio"
	logtelephony "gridvoice/server/logging/telephony"
)

// ParticipantSink is the authority's downlink to the hosted participants.
// Deliver and Broadcast feed engine dispatch tables; Remove asks the game
// layer to drop a participant entirely.
type ParticipantSink interface {
	Deliver(to world.EntityID, ev Event)
	Broadcast(ev Event)
	Remove(id world.EntityID, reason string)
}

// AuthorityConfig fixes the deployment-wide voice parameters.
type AuthorityConfig struct {
	ServerGUID      string
	NamePrefix      string
	IngameChannel   int
	DefaultChannel  int
	ChannelPassword string

	// WhisperMode switches radio fan-out from channel broadcast to exact
	// per-talk recipient sets delivered to the talker.
	WhisperMode bool

	// ShortRangeDistance bounds audibility between two participants when
	// neither carries a long-range radio.
	ShortRangeDistance float64

	MegaphoneRange float64

	Towers []Tower
}

const (
	defaultShortRangeDistance = 300
	defaultNamePrefix         = "gv"
)

func (c AuthorityConfig) withDefaults() AuthorityConfig {
	if c.ShortRangeDistance <= 0 {
		c.ShortRangeDistance = defaultShortRangeDistance
	}
	if c.MegaphoneRange <= 0 {
		c.MegaphoneRange = defaultMegaphoneRange
	}
	if c.NamePrefix == "" {
		c.NamePrefix = defaultNamePrefix
	}
	return c
}

// frequencyMember is one participant's entry under a frequency.
type frequencyMember struct {
	muted bool
}

// participant is the authority's bookkeeping for one hosted player.
type participant struct {
	id        world.EntityID
	voiceName string
	clientID  int

	rangeMeters float64
	forceMuted  bool

	radioEnabled bool
	hasLong      bool
	megaphoneOn  bool
	// frequencies maps channel slot to the frequency the participant holds
	// there. Mirrors the frequency membership map from the other side.
	frequencies map[int]string

	mutedOnPhone bool
	speakerOn    bool
	// calls maps peer id to whether the edge is historical (landline-era
	// audio profile). Always symmetric with the peer's map.
	calls map[world.EntityID]bool
}

// Authority is the server-side owner of the global radio and telephony
// bookkeeping shared by every hosted participant. All mutation happens
// under one lock; handlers never call each other unlocked.
type Authority struct {
	mu sync.Mutex

	cfg    AuthorityConfig
	sink   ParticipantSink
	worlds world.Provider
	towers TowerGrid

	logger telemetry.Logger
	pub    logging.Publisher

	participants map[world.EntityID]*participant
	// frequencies is the authoritative frequency membership map. Entries
	// with zero members are deleted, never kept empty.
	frequencies map[string]map[world.EntityID]*frequencyMember
	names       map[string]struct{}
}

// NewAuthority builds the authority. The world provider answers position
// queries for short-range and tower gating; it may be nil, which disables
// distance gating entirely.
func NewAuthority(cfg AuthorityConfig, sink ParticipantSink, provider world.Provider, logger telemetry.Logger, pub logging.Publisher) *Authority {
	cfg = cfg.withDefaults()
	return &Authority{
		cfg:          cfg,
		sink:         sink,
		worlds:       provider,
		towers:       NewTowerGrid(cfg.Towers),
		logger:       logger,
		pub:          pub,
		participants: make(map[world.EntityID]*participant),
		frequencies:  make(map[string]map[world.EntityID]*frequencyMember),
		names:        make(map[string]struct{}),
	}
}

// AddParticipant registers a hosted player and returns the connect info its
// engine needs to open the control channel. The voice name is unique per
// authority lifetime.
func (a *Authority) AddParticipant(id world.EntityID) ConnectInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.participants[id]
	if !ok {
		p = &participant{
			id:          id,
			voiceName:   a.allocateNameLocked(),
			rangeMeters: VoiceRangeForStep(defaultRangeStep),
			frequencies: make(map[int]string),
			calls:       make(map[world.EntityID]bool),
		}
		a.participants[id] = p
	}
	return ConnectInfo{
		ServerGUID:      a.cfg.ServerGUID,
		IngameName:      p.voiceName,
		IngameChannel:   a.cfg.IngameChannel,
		DefaultChannel:  a.cfg.DefaultChannel,
		ChannelPassword: a.cfg.ChannelPassword,
	}
}

func (a *Authority) allocateNameLocked() string {
	for {
		name := fmt.Sprintf("[%s] %s", a.cfg.NamePrefix, uuid.NewString()[:13])
		if _, taken := a.names[name]; !taken {
			a.names[name] = struct{}{}
			return name
		}
	}
}

// VoiceClientJoined records the backend client id the participant's session
// was assigned, announces the identity to everyone, and replays every known
// identity back to the joiner.
func (a *Authority) VoiceClientJoined(id world.EntityID, clientID int) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		a.logf("authority: voice join for unknown participant %d", id)
		return
	}
	p.clientID = clientID
	joined := VoiceClientInfo{ID: id, ClientID: clientID, Range: p.rangeMeters, ForceMuted: p.forceMuted}
	known := make([]VoiceClientInfo, 0, len(a.participants))
	var megaphones []world.EntityID
	for _, other := range a.participants {
		if other.clientID == 0 {
			continue
		}
		known = append(known, VoiceClientInfo{
			ID: other.id, ClientID: other.clientID, Range: other.rangeMeters, ForceMuted: other.forceMuted,
		})
		if other.megaphoneOn && other.id != id {
			megaphones = append(megaphones, other.id)
		}
	}
	a.mu.Unlock()

	a.sink.Broadcast(Event{Kind: EventVoiceClientsAdded, Clients: []VoiceClientInfo{joined}})
	a.sink.Deliver(id, Event{Kind: EventVoiceClientsAdded, Clients: known})
	for _, holder := range megaphones {
		a.sink.Deliver(id, Event{Kind: EventMegaphoneChanged, Target: holder, Flag: true, Range: a.cfg.MegaphoneRange})
	}
	loglifecycle.ParticipantJoined(context.Background(), a.pub, a.ref(id), loglifecycle.ParticipantPayload{ClientID: clientID})
}

// SessionReady replays the participant's server-held state after a backend
// reconnect wiped the session.
func (a *Authority) SessionReady(id world.EntityID, firstConnect bool) {
	if firstConnect {
		return
	}
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(p.frequencies)+len(p.calls))
	for channel, freq := range p.frequencies {
		events = append(events, Event{Kind: EventRadioFrequencySet, Channel: channel, Frequency: freq})
	}
	for peer, historical := range p.calls {
		events = append(events, Event{Kind: EventPhoneLink, Target: peer, Flag: true, Historical: historical})
	}
	a.mu.Unlock()
	for _, ev := range events {
		a.sink.Deliver(id, ev)
	}
}

// PluginInactive escalates a participant whose voice plugin never became
// reachable: the participant is removed from the game entirely.
func (a *Authority) PluginInactive(id world.EntityID) {
	loglifecycle.PluginInactive(context.Background(), a.pub, a.ref(id), loglifecycle.ParticipantPayload{Reason: "plugin unreachable"})
	a.sink.Remove(id, "voice plugin not running")
}

// ChangeVoiceRange validates a requested range against the step table and
// broadcasts it. Requests for meters outside the table are dropped.
func (a *Authority) ChangeVoiceRange(id world.EntityID, meters float64) {
	valid := false
	for step := 1; step <= MaxVoiceRangeStep; step++ {
		if VoiceRangeForStep(step) == meters {
			valid = true
			break
		}
	}
	if !valid {
		a.logf("authority: participant %d requested off-table voice range %.1f", id, meters)
		return
	}
	a.mu.Lock()
	p, ok := a.participants[id]
	if ok {
		p.rangeMeters = meters
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	a.sink.Broadcast(Event{Kind: EventVoiceRangeChanged, Target: id, Range: meters})
}

// SetMaxVoiceRangeStep caps a participant's selectable range, pulling their
// current range down when it sits above the new cap. Zones with enforced
// quiet use this.
func (a *Authority) SetMaxVoiceRangeStep(id world.EntityID, step int) {
	if step < 1 || step > MaxVoiceRangeStep {
		a.logf("authority: participant %d given invalid range cap %d", id, step)
		return
	}
	capMeters := VoiceRangeForStep(step)
	a.mu.Lock()
	p, ok := a.participants[id]
	clamped := false
	if ok && p.rangeMeters > capMeters {
		p.rangeMeters = capMeters
		clamped = true
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	a.sink.Deliver(id, Event{Kind: EventMaxVoiceRangeChanged, Target: id, Step: step})
	if clamped {
		a.sink.Broadcast(Event{Kind: EventVoiceRangeChanged, Target: id, Range: capMeters})
	}
}

// Lipsync mirrors a participant's talk state to everyone for lip animation.
func (a *Authority) Lipsync(id world.EntityID, talking bool) {
	a.sink.Broadcast(Event{Kind: EventLipsync, Target: id, Flag: talking})
}

// SetForceMuted administratively mutes or unmutes a participant everywhere.
func (a *Authority) SetForceMuted(id world.EntityID, muted bool) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if ok {
		p.forceMuted = muted
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	a.sink.Broadcast(Event{Kind: EventMuteTarget, Target: id, Flag: muted})
}

// SetLongRangeRadio grants or revokes the long-range radio capability used
// by the per-pair short-range rule.
func (a *Authority) SetLongRangeRadio(id world.EntityID, hasLong bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.participants[id]; ok {
		p.hasLong = hasLong
	}
}

// EnableRadio powers a participant's radio on or off. Powering off leaves
// every held frequency.
func (a *Authority) EnableRadio(id world.EntityID, enabled bool) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		return
	}
	p.radioEnabled = enabled
	var left []Event
	if !enabled {
		for channel := range p.frequencies {
			left = append(left, a.leaveFrequencyLocked(p, channel))
		}
	}
	a.mu.Unlock()
	for _, ev := range left {
		a.sink.Deliver(id, ev)
	}
	a.sink.Broadcast(Event{Kind: EventRadioEnabledChanged, Target: id, Flag: enabled})
}

// ChangeRadioFrequency retunes one of the participant's channel slots:
// leave the old frequency, join the new one, confirm to the participant.
// A participant is never under two frequencies for the same slot.
func (a *Authority) ChangeRadioFrequency(id world.EntityID, channel int, frequency string) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok || !p.radioEnabled {
		a.mu.Unlock()
		return
	}
	if _, held := p.frequencies[channel]; held {
		a.leaveFrequencyLocked(p, channel)
	}
	if frequency != UnsetFrequency && frequency != "" {
		members, ok := a.frequencies[frequency]
		if !ok {
			members = make(map[world.EntityID]*frequencyMember)
			a.frequencies[frequency] = members
		}
		members[id] = &frequencyMember{}
		p.frequencies[channel] = frequency
		logradio.FrequencyJoined(context.Background(), a.pub, a.ref(id), logradio.FrequencyPayload{
			Channel: channel, Frequency: frequency, Members: len(members),
		})
	} else {
		frequency = UnsetFrequency
	}
	a.mu.Unlock()
	a.sink.Deliver(id, Event{Kind: EventRadioFrequencySet, Channel: channel, Frequency: frequency})
}

// leaveFrequencyLocked removes the participant from the frequency held on
// the given slot and deletes the frequency entry when it empties. Returns
// the confirmation event for the participant.
func (a *Authority) leaveFrequencyLocked(p *participant, channel int) Event {
	freq, held := p.frequencies[channel]
	if held {
		if members, ok := a.frequencies[freq]; ok {
			delete(members, p.id)
			if len(members) == 0 {
				delete(a.frequencies, freq)
			}
			logradio.FrequencyLeft(context.Background(), a.pub, a.ref(p.id), logradio.FrequencyPayload{
				Channel: channel, Frequency: freq, Members: len(members),
			})
		}
		delete(p.frequencies, channel)
	}
	return Event{Kind: EventRadioFrequencySet, Channel: channel, Frequency: UnsetFrequency}
}

// MuteRadioChannel toggles the participant's listener mute on the frequency
// held by the slot and confirms the new state.
func (a *Authority) MuteRadioChannel(id world.EntityID, channel int) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		return
	}
	freq, held := p.frequencies[channel]
	if !held {
		a.mu.Unlock()
		return
	}
	member, ok := a.frequencies[freq][id]
	if !ok {
		a.mu.Unlock()
		return
	}
	member.muted = !member.muted
	muted := member.muted
	a.mu.Unlock()
	a.sink.Deliver(id, Event{Kind: EventRadioMuteState, Channel: channel, Flag: muted})
}

// RadioTalking fans a talk state change out to the frequency held on the
// announced channel. Audibility and degradation are decided per pair: two
// short-range radios are bounded by distance, any long-range end is gated
// and degraded by tower coverage.
func (a *Authority) RadioTalking(id world.EntityID, talking bool, channel int, towerDistance float64) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok || !p.radioEnabled || (talking && p.forceMuted) {
		a.mu.Unlock()
		return
	}
	freq, held := p.frequencies[channel]
	if !held {
		a.mu.Unlock()
		return
	}

	type fanTarget struct {
		id         world.EntityID
		errorLevel float64
		shortRange bool
	}
	var targets []fanTarget
	senderLevel, senderCovered, known := a.coverageLocked(id)
	if !known {
		// Fall back to the distance the talker announced with the talk
		// state when the world layer cannot place them.
		senderLevel, senderCovered = a.towers.LevelForDistance(towerDistance)
	}
	for memberID, member := range a.frequencies[freq] {
		if memberID == id || member.muted {
			continue
		}
		receiver, ok := a.participants[memberID]
		if !ok || !receiver.radioEnabled {
			continue
		}
		if !talking {
			// A stop must reach everyone who may still hold an on-link,
			// no matter where either end has moved since the start.
			targets = append(targets, fanTarget{id: memberID})
			continue
		}
		shortRange := !p.hasLong && !receiver.hasLong
		if shortRange {
			if !a.withinShortRangeLocked(id, memberID) {
				continue
			}
			targets = append(targets, fanTarget{id: memberID, shortRange: true})
			continue
		}
		if a.towers.Configured() {
			if !senderCovered {
				continue
			}
			receiverLevel, covered, receiverKnown := a.coverageLocked(memberID)
			if receiverKnown && !covered {
				continue
			}
			level := senderLevel
			if receiverLevel > level {
				level = receiverLevel
			}
			targets = append(targets, fanTarget{id: memberID, errorLevel: level})
			continue
		}
		targets = append(targets, fanTarget{id: memberID})
	}
	whisper := a.cfg.WhisperMode
	a.mu.Unlock()

	if talking && a.towers.Configured() && !senderCovered {
		logradio.TransmissionDropped(context.Background(), a.pub, a.ref(id), logradio.FanoutPayload{
			Frequency: freq, Talking: talking, Targets: len(targets),
		})
	}

	if whisper {
		ids := make([]world.EntityID, 0, len(targets))
		for _, t := range targets {
			ids = append(ids, t.id)
		}
		a.sink.Deliver(id, Event{Kind: EventRadioWhisperTargets, Flag: talking, Frequency: freq, IDs: ids})
	} else {
		for _, t := range targets {
			a.sink.Deliver(t.id, Event{
				Kind:       EventRadioTalking,
				Target:     id,
				Flag:       talking,
				Frequency:  freq,
				ErrorLevel: t.errorLevel,
				ShortRange: t.shortRange,
			})
		}
	}
	logradio.TalkFanout(context.Background(), a.pub, a.ref(id), logradio.FanoutPayload{
		Frequency: freq, Talking: talking, Targets: len(targets), Whisper: whisper,
	})
}

// coverageLocked resolves a participant's tower signal degradation from
// their live position. known is false when the world layer cannot place
// the participant at all.
func (a *Authority) coverageLocked(id world.EntityID) (level float64, covered, known bool) {
	if !a.towers.Configured() {
		return 0, true, true
	}
	if a.worlds == nil {
		return 0, false, false
	}
	pos, ok := a.worlds.Position(id)
	if !ok {
		return 0, false, false
	}
	level, covered = a.towers.ErrorLevel(pos)
	return level, covered, true
}

func (a *Authority) withinShortRangeLocked(sender, receiver world.EntityID) bool {
	if a.worlds == nil {
		return true
	}
	sp, ok := a.worlds.Position(sender)
	if !ok {
		return false
	}
	rp, ok := a.worlds.Position(receiver)
	if !ok {
		return false
	}
	return sp.DistanceTo(rp) <= a.cfg.ShortRangeDistance
}

// SetCall starts or ends a phone call between two participants. Both edge
// directions change together; ending also clears phone mutes and speaker
// membership derived from the call.
func (a *Authority) SetCall(x, y world.EntityID, active bool) {
	a.setCall(x, y, active, false)
}

// SetHistoricalCall is SetCall with the degraded landline audio profile.
func (a *Authority) SetHistoricalCall(x, y world.EntityID, active bool) {
	a.setCall(x, y, active, true)
}

func (a *Authority) setCall(x, y world.EntityID, active bool, historical bool) {
	a.mu.Lock()
	px, okx := a.participants[x]
	py, oky := a.participants[y]
	if !okx || !oky || x == y {
		a.mu.Unlock()
		a.logf("authority: call toggle with unknown participants %d/%d", x, y)
		return
	}
	if active {
		px.calls[y] = historical
		py.calls[x] = historical
	} else {
		delete(px.calls, y)
		delete(py.calls, x)
		px.mutedOnPhone = len(px.calls) > 0 && px.mutedOnPhone
		py.mutedOnPhone = len(py.calls) > 0 && py.mutedOnPhone
	}
	speakerEvents := a.refreshSpeakersLocked(px, py)
	a.mu.Unlock()

	a.sink.Deliver(x, Event{Kind: EventPhoneLink, Target: y, Flag: active, Historical: historical})
	a.sink.Deliver(y, Event{Kind: EventPhoneLink, Target: x, Flag: active, Historical: historical})
	for _, ev := range speakerEvents {
		a.sink.Broadcast(ev)
	}
	actor := a.ref(x)
	payload := logtelephony.CallPayload{Peer: strconv.FormatUint(uint64(y), 10), Historic: historical}
	if active {
		logtelephony.CallStarted(context.Background(), a.pub, actor, payload)
	} else {
		logtelephony.CallEnded(context.Background(), a.pub, actor, payload)
	}
}

// SetMutedOnPhone gates a call party's transmission without touching the
// call graph.
func (a *Authority) SetMutedOnPhone(id world.EntityID, muted bool) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok || len(p.calls) == 0 {
		a.mu.Unlock()
		return
	}
	p.mutedOnPhone = muted
	a.mu.Unlock()
	a.sink.Broadcast(Event{Kind: EventMutedOnPhone, Target: id, Flag: muted})
}

// SetPhoneSpeaker enables or disables rebroadcasting the participant's call
// audio to nearby listeners.
func (a *Authority) SetPhoneSpeaker(id world.EntityID, on bool) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		return
	}
	p.speakerOn = on
	members := len(p.calls)
	events := a.refreshSpeakersLocked(p)
	a.mu.Unlock()
	for _, ev := range events {
		a.sink.Broadcast(ev)
	}
	logtelephony.SpeakerToggled(context.Background(), a.pub, a.ref(id), logtelephony.SpeakerPayload{
		Enabled: on, Members: members,
	})
}

// refreshSpeakersLocked recomputes the published speaker member list for
// the given participants. An empty list ends the broadcast.
func (a *Authority) refreshSpeakersLocked(ps ...*participant) []Event {
	events := make([]Event, 0, len(ps))
	for _, p := range ps {
		var members []world.EntityID
		if p.speakerOn {
			for peer := range p.calls {
				members = append(members, peer)
			}
		}
		events = append(events, Event{Kind: EventPhoneSpeaker, Target: p.id, IDs: members})
	}
	return events
}

// UseMegaphone mirrors a participant's megaphone toggle to everyone with
// the deployment's megaphone range.
func (a *Authority) UseMegaphone(id world.EntityID, active bool) {
	a.mu.Lock()
	if p, ok := a.participants[id]; ok {
		p.megaphoneOn = active
	}
	a.mu.Unlock()
	a.sink.Broadcast(Event{
		Kind:   EventMegaphoneChanged,
		Target: id,
		Flag:   active,
		Range:  a.cfg.MegaphoneRange,
	})
}

// SetIntercom toggles a symmetric intercom group. Each member receives the
// id list minus itself.
func (a *Authority) SetIntercom(ids []world.EntityID, active bool) {
	for _, id := range ids {
		others := make([]world.EntityID, 0, len(ids)-1)
		for _, other := range ids {
			if other != id {
				others = append(others, other)
			}
		}
		a.sink.Deliver(id, Event{Kind: EventIntercomChanged, Flag: active, IDs: others})
	}
}

// RemoveParticipant tears a participant down: every frequency left, every
// call ended, the speaker broadcast cleared, the identity released, and
// the destruction announced to everyone still hosted.
func (a *Authority) RemoveParticipant(id world.EntityID) {
	a.mu.Lock()
	p, ok := a.participants[id]
	if !ok {
		a.mu.Unlock()
		return
	}
	for channel := range p.frequencies {
		a.leaveFrequencyLocked(p, channel)
	}
	type endedCall struct {
		peer       world.EntityID
		historical bool
	}
	var ended []endedCall
	var speakerEvents []Event
	for peer, historical := range p.calls {
		other, ok := a.participants[peer]
		if !ok {
			continue
		}
		delete(other.calls, id)
		if len(other.calls) == 0 {
			other.mutedOnPhone = false
		}
		ended = append(ended, endedCall{peer: peer, historical: historical})
		speakerEvents = append(speakerEvents, a.refreshSpeakersLocked(other)...)
	}
	clientID := p.clientID
	megaphoneOn := p.megaphoneOn
	delete(a.participants, id)
	a.mu.Unlock()

	for _, call := range ended {
		a.sink.Deliver(call.peer, Event{Kind: EventPhoneLink, Target: id, Flag: false, Historical: call.historical})
	}
	for _, ev := range speakerEvents {
		a.sink.Broadcast(ev)
	}
	if megaphoneOn {
		a.sink.Broadcast(Event{Kind: EventMegaphoneChanged, Target: id, Flag: false, Range: a.cfg.MegaphoneRange})
	}
	a.sink.Broadcast(Event{Kind: EventEntityDestroyed, Target: id})
	loglifecycle.ParticipantRemoved(context.Background(), a.pub, a.ref(id), loglifecycle.ParticipantPayload{ClientID: clientID})
}

// FrequencyMembers reports the ids under a frequency, primarily for
// inspection and tests.
func (a *Authority) FrequencyMembers(frequency string) []world.EntityID {
	a.mu.Lock()
	defer a.mu.Unlock()
	members, ok := a.frequencies[frequency]
	if !ok {
		return nil
	}
	ids := make([]world.EntityID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// InCall reports whether a call edge exists between two participants, in
// either direction.
func (a *Authority) InCall(x, y world.EntityID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	px, okx := a.participants[x]
	py, oky := a.participants[y]
	if !okx || !oky {
		return false
	}
	_, xy := px.calls[y]
	_, yx := py.calls[x]
	return xy && yx
}

func (a *Authority) ref(id world.EntityID) logging.EntityRef {
	return logging.ParticipantRef(strconv.FormatUint(uint64(id), 10))
}

func (a *Authority) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}
