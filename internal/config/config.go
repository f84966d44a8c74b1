// Package config loads the deployment configuration from YAML with
// environment overrides for the handful of values that differ between
// environments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML document.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Voice   VoiceConfig   `yaml:"voice"`
	Radio   RadioConfig   `yaml:"radio"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig tunes the control channel to the voice backend.
type BackendConfig struct {
	URL                 string `yaml:"url"`
	ReconnectDelayMS    int    `yaml:"reconnect_delay_ms"`
	HeartbeatIntervalMS int    `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeoutMS  int    `yaml:"heartbeat_timeout_ms"`
	LivenessThreshold   int    `yaml:"liveness_threshold"`
}

// VoiceConfig fixes the backend session identity shared by every
// participant.
type VoiceConfig struct {
	ServerGUID       string `yaml:"server_guid"`
	IngameChannel    int    `yaml:"ingame_channel"`
	DefaultChannel   int    `yaml:"default_channel"`
	ChannelPassword  string `yaml:"channel_password"`
	ExcludedChannels []int  `yaml:"excluded_channels"`
	MufflingRange    int    `yaml:"muffling_range"`
	UnmuteDelay      int    `yaml:"unmute_delay"`
	WhisperMode      bool   `yaml:"whisper_mode"`
	NamePrefix       string `yaml:"name_prefix"`
}

// TowerConfig is one static radio tower.
type TowerConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`
}

// RadioConfig tunes the radio subsystem.
type RadioConfig struct {
	MaxChannels        int           `yaml:"max_channels"`
	ShortRangeDistance float64       `yaml:"short_range_distance"`
	Towers             []TowerConfig `yaml:"towers"`
}

// EngineConfig tunes the per-participant engine loops.
type EngineConfig struct {
	FrameIntervalMS        int      `yaml:"frame_interval_ms"`
	TalkAnnounceIntervalMS int      `yaml:"talk_announce_interval_ms"`
	PhoneSpeakerRange      float64  `yaml:"phone_speaker_range"`
	MegaphoneRange         float64  `yaml:"megaphone_range"`
	OpenVehicleModels      []string `yaml:"open_vehicle_models"`
}

// LoggingConfig selects sink output. Level maps onto the logging router's
// severity threshold.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	JSONPath string `yaml:"json_path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:                 "ws://127.0.0.1:30125",
			ReconnectDelayMS:    2000,
			HeartbeatIntervalMS: 1500,
			HeartbeatTimeoutMS:  4000,
			LivenessThreshold:   120,
		},
		Voice: VoiceConfig{
			IngameChannel:  3,
			DefaultChannel: 1,
			MufflingRange:  8,
			NamePrefix:     "gv",
		},
		Radio: RadioConfig{
			MaxChannels:        9,
			ShortRangeDistance: 300,
		},
		Engine: EngineConfig{
			FrameIntervalMS:        250,
			TalkAnnounceIntervalMS: 1000,
			PhoneSpeakerRange:      5,
			MegaphoneRange:         30,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GRIDVOICE_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("GRIDVOICE_SERVER_GUID"); v != "" {
		c.Voice.ServerGUID = v
	}
	if v := os.Getenv("GRIDVOICE_CHANNEL_PASSWORD"); v != "" {
		c.Voice.ChannelPassword = v
	}
	if v := os.Getenv("GRIDVOICE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GRIDVOICE_WHISPER_MODE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Voice.WhisperMode = parsed
		}
	}
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Radio.MaxChannels < 1 {
		return fmt.Errorf("radio.max_channels must be at least 1")
	}
	for i, tower := range c.Radio.Towers {
		if tower.Radius <= 0 {
			return fmt.Errorf("radio.towers[%d].radius must be positive", i)
		}
	}
	return nil
}

// FrameInterval converts the configured cadence to a duration.
func (c EngineConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// TalkAnnounceInterval converts the configured cadence to a duration.
func (c EngineConfig) TalkAnnounceInterval() time.Duration {
	return time.Duration(c.TalkAnnounceIntervalMS) * time.Millisecond
}

// ReconnectDelay converts the configured delay to a duration.
func (c BackendConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// HeartbeatInterval converts the configured cadence to a duration.
func (c BackendConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

// HeartbeatTimeout converts the configured timeout to a duration.
func (c BackendConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMS) * time.Millisecond
}
