package server

import (
	"sync"
	"time"

	"gridvoice/server/internal/control"
	"gridvoice/server/internal/telemetry"
	"gridvoice/server/internal/world"
)

// UI receives user-facing state changes from the engine. Implementations
// render hints, notifications and HUD state in the game; tests record them.
type UI interface {
	Notify(message string)
	PluginStateChanged(reachable bool)
	VoiceRangeChanged(step int, meters float64)
	TalkStateChanged(talking bool)
	MuteStateChanged(muted bool)
	RadioStateChanged(enabled bool)
	RadioChannelChanged(channel int, settings RadioChannel)
	RadioTalkingChanged(talking bool)
}

// ServerLink is the engine's uplink to the routing authority. Every call is
// a request or announcement; confirmed state comes back through Dispatch.
type ServerLink interface {
	VoiceClientJoined(clientID int)
	SessionReady(firstConnect bool)
	PluginInactive()
	ChangeVoiceRange(meters float64)
	Lipsync(talking bool)
	EnableRadio(enabled bool)
	ChangeRadioFrequency(channel int, frequency string)
	MuteRadioChannel(channel int)
	RadioTalking(talking bool, channel int, towerDistance float64)
	UseMegaphone(active bool)
}

// TalkCues drives the game-side presentation of talking: the radio talk
// animation and remote lip movement. StartRadioTalkCue completes
// asynchronously once the animation resource is ready; the engine never
// blocks on it.
type TalkCues interface {
	StartRadioTalkCue(done func(ready bool))
	StopRadioTalkCue()
	SetLips(id world.EntityID, talking bool)
}

// Deps are the collaborators one engine instance needs.
type Deps struct {
	World  world.Provider
	UI     UI
	Server ServerLink
	Cues   TalkCues
	Logger telemetry.Logger
}

// Settings tune one engine instance. Zero values fall back to defaults.
type Settings struct {
	MaxRadioChannels     int
	FrameInterval        time.Duration
	TalkAnnounceInterval time.Duration
	MaxPhoneSpeakerRange float64
	MegaphoneRange       float64
	DefaultRangeStep     int

	// OpenVehicleModels lists vehicle model tokens treated as acoustically
	// open regardless of their door state.
	OpenVehicleModels []string

	Towers []Tower
}

const (
	defaultMaxRadioChannels     = 9
	defaultFrameInterval        = 250 * time.Millisecond
	defaultTalkAnnounceInterval = time.Second
	defaultMaxPhoneSpeakerRange = 5
	defaultMegaphoneRange       = 30
	defaultRangeStep            = 3
)

func (s Settings) withDefaults() Settings {
	if s.MaxRadioChannels <= 0 {
		s.MaxRadioChannels = defaultMaxRadioChannels
	}
	if s.FrameInterval <= 0 {
		s.FrameInterval = defaultFrameInterval
	}
	if s.TalkAnnounceInterval <= 0 {
		s.TalkAnnounceInterval = defaultTalkAnnounceInterval
	}
	if s.MaxPhoneSpeakerRange <= 0 {
		s.MaxPhoneSpeakerRange = defaultMaxPhoneSpeakerRange
	}
	if s.MegaphoneRange <= 0 {
		s.MegaphoneRange = defaultMegaphoneRange
	}
	if s.DefaultRangeStep <= 0 {
		s.DefaultRangeStep = defaultRangeStep
	}
	return s
}

// Task names used with the engine's task runner.
const (
	taskFrame        = "frame"
	taskTalkAnnounce = "talk-announce"
)

// Engine is the per-participant decision core. It owns the registry, all
// device state machines and the periodic frame, and funnels every backend
// write through its LinkRouter. One mutex guards all of it.
type Engine struct {
	mu sync.Mutex

	self     world.EntityID
	deps     Deps
	settings Settings

	registry *Registry
	links    *LinkRouter
	sender   ControlSender
	towers   TowerGrid

	handlers     map[EventKind]func(Event)
	openVehicles map[string]struct{}
	tasks        map[string]chan struct{}

	joined       bool
	clientID     int
	isMuted      bool
	isTalking    bool
	rangeStep    int
	maxRangeStep int

	canUseMegaphone bool
	megaphoneActive bool

	radio          radioState
	phonePeers     map[world.EntityID]*phonePeer
	speakerApplied map[world.EntityID]struct{}
}

// NewEngine builds an engine for the given local participant. AttachControl
// must be called before the first Dispatch.
func NewEngine(self world.EntityID, deps Deps, settings Settings) *Engine {
	settings = settings.withDefaults()
	e := &Engine{
		self:         self,
		deps:         deps,
		settings:     settings,
		registry:     NewRegistry(),
		towers:       NewTowerGrid(settings.Towers),
		openVehicles: make(map[string]struct{}, len(settings.OpenVehicleModels)),
		tasks:        make(map[string]chan struct{}),
		rangeStep:    settings.DefaultRangeStep,
		maxRangeStep: MaxVoiceRangeStep,
		radio:          newRadioState(),
		phonePeers:     make(map[world.EntityID]*phonePeer),
		speakerApplied: make(map[world.EntityID]struct{}),
	}
	for _, model := range settings.OpenVehicleModels {
		e.openVehicles[model] = struct{}{}
	}
	e.handlers = e.newDispatchTable()
	e.registry.Ensure(self).Range = VoiceRangeForStep(e.rangeStep)
	return e
}

// AttachControl wires the outbound side of the control channel. The engine
// and channel are mutually dependent, so construction happens in two steps:
// engine, then channel with the engine's hooks, then this.
func (e *Engine) AttachControl(sender ControlSender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sender = sender
	e.links = NewLinkRouter(e.registry, sender, e.self, e.deps.Logger)
}

// ControlHooks returns the engine's reactions to control channel events,
// for wiring into the channel at construction.
func (e *Engine) ControlHooks() control.Hooks {
	return control.Hooks{
		OnJoined:             e.handleJoined,
		OnReady:              e.handleReady,
		OnTalkState:          e.handleTalkState,
		OnBackendFault:       e.handleBackendFault,
		OnPluginInactive:     e.handlePluginInactive,
		OnPluginStateChanged: e.deps.UI.PluginStateChanged,
	}
}

// Close stops every periodic task. The control channel is closed by its
// owner.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.tasks {
		e.stopTaskLocked(name)
	}
}

// handleJoined runs when the backend confirms the move into the ingame
// channel and assigns a client id.
func (e *Engine) handleJoined(clientID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.joined = true
	e.clientID = clientID
	self := e.registry.Ensure(e.self)
	self.ClientID = clientID
	e.deps.Server.VoiceClientJoined(clientID)
	e.startTaskLocked(taskFrame, e.settings.FrameInterval, e.runFrame)
	if e.radio.inited {
		e.replayRadioSettingsLocked()
	}
}

// handleReady runs on every reconnect after the first. The backend lost all
// session state, so the authority must replay it.
func (e *Engine) handleReady() {
	e.mu.Lock()
	first := !e.joined
	e.mu.Unlock()
	e.deps.Server.SessionReady(first)
}

func (e *Engine) handleTalkState(code, message string) {
	switch code {
	case control.CodeTalkState:
		talking := message == "true"
		e.mu.Lock()
		changed := e.isTalking != talking
		e.isTalking = talking
		e.mu.Unlock()
		if changed {
			e.deps.Server.Lipsync(talking)
			e.deps.UI.TalkStateChanged(talking)
		}
	case control.CodeSoundState:
		muted := message == "true"
		e.mu.Lock()
		e.isMuted = muted
		e.mu.Unlock()
		e.deps.UI.MuteStateChanged(muted)
	}
}

func (e *Engine) handleBackendFault(code, message string, known bool) {
	if message != "" {
		e.deps.UI.Notify(message)
	}
	if !known {
		e.logf("engine: unknown backend fault code %q", code)
	}
}

func (e *Engine) handlePluginInactive() {
	e.deps.Server.PluginInactive()
}

// CycleVoiceRange advances the local voice range one step, wrapping past
// the current cap, and announces the new range.
func (e *Engine) CycleVoiceRange() {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := e.rangeStep + 1
	if step > e.maxRangeStep {
		step = 1
	}
	e.setRangeStepLocked(step)
}

// SetVoiceRangeStep selects a specific range step, clamped to the cap.
func (e *Engine) SetVoiceRangeStep(step int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if step < 1 {
		step = 1
	}
	if step > e.maxRangeStep {
		step = e.maxRangeStep
	}
	e.setRangeStepLocked(step)
}

func (e *Engine) setRangeStepLocked(step int) {
	if step == e.rangeStep {
		return
	}
	e.rangeStep = step
	meters := VoiceRangeForStep(step)
	e.registry.Ensure(e.self).Range = meters
	e.deps.Server.ChangeVoiceRange(meters)
	e.deps.UI.VoiceRangeChanged(step, meters)
}

func (e *Engine) handleVoiceClientsAdded(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, info := range ev.Clients {
		e.registry.Upsert(info)
	}
}

func (e *Engine) handleMuteTarget(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Ensure(ev.Target).ForceMuted = ev.Flag
	if ev.Target != e.self {
		return
	}
	if ev.Flag && e.radio.talking {
		e.stopRadioTalkLocked()
	}
	// The next frame carries the new self mute; force one now so the mute
	// lands within a frame interval even if the loop just ticked.
	e.runFrameLocked()
}

func (e *Engine) handleVoiceRangeChanged(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Ensure(ev.Target).Range = ev.Range
}

// handleMaxVoiceRangeChanged adjusts the local cap and pulls the current
// step under it when necessary.
func (e *Engine) handleMaxVoiceRangeChanged(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := ev.Step
	if step < 1 || step > MaxVoiceRangeStep {
		step = MaxVoiceRangeStep
	}
	e.maxRangeStep = step
	if e.rangeStep > step {
		e.setRangeStepLocked(step)
	}
}

func (e *Engine) handleLipsync(ev Event) {
	e.mu.Lock()
	e.registry.Ensure(ev.Target).Talking = ev.Flag
	e.mu.Unlock()
	e.deps.Cues.SetLips(ev.Target, ev.Flag)
}

func (e *Engine) handleEntityCreated(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, info := range ev.Clients {
		e.registry.Upsert(info)
	}
	if len(ev.Clients) == 0 {
		e.registry.Ensure(ev.Target)
	}
}

// handleEntityDestroyed tears down everything the departed entity held:
// radio links, call edges, speaker broadcasts and the registry record.
func (e *Engine) handleEntityDestroyed(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
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
	if peer, ok := e.phonePeers[ev.Target]; ok {
		e.links.SetLink([]world.EntityID{ev.Target}, e.phoneDevice(peer.historical), false, LinkOptions{})
		delete(e.phonePeers, ev.Target)
	}
	if _, ok := e.speakerApplied[ev.Target]; ok {
		e.links.SetLink([]world.EntityID{ev.Target}, DevicePhoneSpeaker, false, LinkOptions{
			SelfMode:   ModeReceiver,
			OthersMode: ModeSender,
		})
		delete(e.speakerApplied, ev.Target)
	}
	e.registry.Remove(ev.Target)
}

// startTaskLocked replaces any task of the same name with a fresh ticker
// goroutine.
func (e *Engine) startTaskLocked(name string, interval time.Duration, fn func()) {
	e.stopTaskLocked(name)
	stop := make(chan struct{})
	e.tasks[name] = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (e *Engine) stopTaskLocked(name string) {
	if stop, ok := e.tasks[name]; ok {
		close(stop)
		delete(e.tasks, name)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.deps.Logger != nil {
		e.deps.Logger.Printf(format, args...)
	}
}
