// Package app assembles the voice routing service: the logging router, the
// server-side authority, and one engine plus control channel per hosted
// participant.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	server "gridvoice/server"
	"gridvoice/server/internal/config"
	"gridvoice/server/internal/control"
	"gridvoice/server/internal/telemetry"
	"gridvoice/server/internal/world"
	"gridvoice/server/logging"
	loggingSinks "gridvoice/server/logging/sinks"
)

// ParticipantHooks are the game-side collaborators for one participant.
// Nil UI and Cues fall back to no-ops; World is required.
type ParticipantHooks struct {
	World world.Provider
	UI    server.UI
	Cues  server.TalkCues
}

type session struct {
	engine  *server.Engine
	channel *control.Channel
}

// Service hosts the authority and every participant session. It is the
// ParticipantSink the authority fans events out through.
type Service struct {
	cfg     config.Config
	logger  telemetry.Logger
	router  *logging.Router
	metrics *telemetry.Counters

	authority *server.Authority

	mu       sync.Mutex
	sessions map[world.EntityID]*session

	// RemoveHandler is called when a participant is dropped by escalation,
	// so the game layer can disconnect them. Optional.
	RemoveHandler func(id world.EntityID, reason string)
}

// New builds the service. The world provider answers the authority's
// position queries for radio gating; it may be nil.
func New(cfg config.Config, provider world.Provider, logger telemetry.Logger) (*Service, error) {
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	logConfig := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		if sev, ok := logging.SeverityFromString(cfg.Logging.Level); ok {
			logConfig.MinimumSeverity = sev
		}
	}
	named := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if cfg.Logging.JSONPath != "" {
		file, err := os.OpenFile(cfg.Logging.JSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %s: %w", cfg.Logging.JSONPath, err)
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSONSink(file, logConfig.JSON.FlushInterval)})
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, named)
	if err != nil {
		return nil, fmt.Errorf("construct logging router: %w", err)
	}

	svc := &Service{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		metrics:  telemetry.NewCounters(),
		sessions: make(map[world.EntityID]*session),
	}
	svc.authority = server.NewAuthority(server.AuthorityConfig{
		ServerGUID:         cfg.Voice.ServerGUID,
		NamePrefix:         cfg.Voice.NamePrefix,
		IngameChannel:      cfg.Voice.IngameChannel,
		DefaultChannel:     cfg.Voice.DefaultChannel,
		ChannelPassword:    cfg.Voice.ChannelPassword,
		WhisperMode:        cfg.Voice.WhisperMode,
		ShortRangeDistance: cfg.Radio.ShortRangeDistance,
		MegaphoneRange:     cfg.Engine.MegaphoneRange,
		Towers:             towersFromConfig(cfg.Radio.Towers),
	}, svc, provider, logger, router)
	return svc, nil
}

// Authority exposes the routing authority for the game integration layer.
func (s *Service) Authority() *server.Authority {
	return s.authority
}

// Metrics exposes the service counters.
func (s *Service) Metrics() *telemetry.Counters {
	return s.metrics
}

// AddParticipant registers a participant with the authority, builds their
// engine, and opens their control channel to the backend.
func (s *Service) AddParticipant(id world.EntityID, hooks ParticipantHooks) (*server.Engine, error) {
	if hooks.World == nil {
		return nil, fmt.Errorf("participant %d: world provider is required", id)
	}
	if hooks.UI == nil {
		hooks.UI = server.NopUI{}
	}
	if hooks.Cues == nil {
		hooks.Cues = server.NopCues{}
	}

	s.mu.Lock()
	if _, exists := s.sessions[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("participant %d already hosted", id)
	}
	s.mu.Unlock()

	info := s.authority.AddParticipant(id)
	engine := server.NewEngine(id, server.Deps{
		World:  hooks.World,
		UI:     hooks.UI,
		Server: &serverLink{authority: s.authority, id: id},
		Cues:   hooks.Cues,
		Logger: s.logger,
	}, server.Settings{
		MaxRadioChannels:     s.cfg.Radio.MaxChannels,
		FrameInterval:        s.cfg.Engine.FrameInterval(),
		TalkAnnounceInterval: s.cfg.Engine.TalkAnnounceInterval(),
		MaxPhoneSpeakerRange: s.cfg.Engine.PhoneSpeakerRange,
		MegaphoneRange:       s.cfg.Engine.MegaphoneRange,
		OpenVehicleModels:    s.cfg.Engine.OpenVehicleModels,
		Towers:               towersFromConfig(s.cfg.Radio.Towers),
	})

	operationMode := control.ModeBroadcast
	if s.cfg.Voice.WhisperMode {
		operationMode = control.ModeWhisper
	}
	channel := control.NewChannel(control.Config{
		URL:               s.cfg.Backend.URL,
		ParticipantID:     fmt.Sprintf("%d", id),
		ReconnectDelay:    s.cfg.Backend.ReconnectDelay(),
		HeartbeatInterval: s.cfg.Backend.HeartbeatInterval(),
		HeartbeatTimeout:  s.cfg.Backend.HeartbeatTimeout(),
		LivenessThreshold: s.cfg.Backend.LivenessThreshold,
		Logger:            s.logger,
		Metrics:           s.metrics,
		Publisher:         s.router,
	}, control.InitParams{
		ServerGUID:       info.ServerGUID,
		IngameName:       info.IngameName,
		IngameChannel:    info.IngameChannel,
		DefaultChannel:   info.DefaultChannel,
		ChannelPassword:  info.ChannelPassword,
		ExcludedChannels: s.cfg.Voice.ExcludedChannels,
		MufflingRange:    s.cfg.Voice.MufflingRange,
		UnmuteDelay:      s.cfg.Voice.UnmuteDelay,
		OperationMode:    operationMode,
	}, engine.ControlHooks())
	engine.AttachControl(channel)

	s.mu.Lock()
	s.sessions[id] = &session{engine: engine, channel: channel}
	total := len(s.sessions)
	s.mu.Unlock()
	s.metrics.Store("participants", uint64(total))

	channel.Connect()
	return engine, nil
}

// RemoveParticipant tears a participant down everywhere: authority state,
// engine tasks, and the control channel.
func (s *Service) RemoveParticipant(id world.EntityID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	total := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.metrics.Store("participants", uint64(total))
	s.authority.RemoveParticipant(id)
	sess.engine.Close()
	sess.channel.Close()
}

// Deliver routes one authority event to a hosted participant's engine.
func (s *Service) Deliver(to world.EntityID, ev server.Event) {
	s.mu.Lock()
	sess, ok := s.sessions[to]
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.engine.Dispatch(ev)
}

// Broadcast routes one authority event to every hosted participant.
func (s *Service) Broadcast(ev server.Event) {
	s.mu.Lock()
	engines := make([]*server.Engine, 0, len(s.sessions))
	for _, sess := range s.sessions {
		engines = append(engines, sess.engine)
	}
	s.mu.Unlock()
	for _, engine := range engines {
		engine.Dispatch(ev)
	}
}

// Remove implements the authority's escalation path.
func (s *Service) Remove(id world.EntityID, reason string) {
	s.logger.Printf("app: removing participant %d: %s", id, reason)
	s.RemoveParticipant(id)
	if s.RemoveHandler != nil {
		s.RemoveHandler(id, reason)
	}
}

// Close tears down every session and flushes the logging router.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]world.EntityID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.RemoveParticipant(id)
	}
	return s.router.Close(ctx)
}

// serverLink binds one participant's engine uplink to the authority.
type serverLink struct {
	authority *server.Authority
	id        world.EntityID
}

func (l *serverLink) VoiceClientJoined(clientID int) {
	l.authority.VoiceClientJoined(l.id, clientID)
}

func (l *serverLink) SessionReady(first bool) {
	l.authority.SessionReady(l.id, first)
}

func (l *serverLink) PluginInactive() {
	l.authority.PluginInactive(l.id)
}

func (l *serverLink) ChangeVoiceRange(meters float64) {
	l.authority.ChangeVoiceRange(l.id, meters)
}

func (l *serverLink) Lipsync(talking bool) {
	l.authority.Lipsync(l.id, talking)
}

func (l *serverLink) EnableRadio(enabled bool) {
	l.authority.EnableRadio(l.id, enabled)
}

func (l *serverLink) ChangeRadioFrequency(channel int, frequency string) {
	l.authority.ChangeRadioFrequency(l.id, channel, frequency)
}

func (l *serverLink) MuteRadioChannel(channel int) {
	l.authority.MuteRadioChannel(l.id, channel)
}

func (l *serverLink) RadioTalking(talking bool, channel int, towerDistance float64) {
	l.authority.RadioTalking(l.id, talking, channel, towerDistance)
}

func (l *serverLink) UseMegaphone(active bool) {
	l.authority.UseMegaphone(l.id, active)
}

func towersFromConfig(towers []config.TowerConfig) []server.Tower {
	out := make([]server.Tower, 0, len(towers))
	for _, t := range towers {
		out = append(out, server.Tower{
			Position: world.Vec3{X: t.X, Y: t.Y, Z: t.Z},
			Radius:   t.Radius,
		})
	}
	return out
}
