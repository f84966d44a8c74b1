package server

import "gridvoice/server/internal/world"

// NopUI discards all UI notifications, for headless participants and tests.
type NopUI struct{}

func (NopUI) Notify(string)                    {}
func (NopUI) PluginStateChanged(bool)          {}
func (NopUI) VoiceRangeChanged(int, float64)   {}
func (NopUI) TalkStateChanged(bool)            {}
func (NopUI) MuteStateChanged(bool)            {}
func (NopUI) RadioStateChanged(bool)           {}
func (NopUI) RadioChannelChanged(int, RadioChannel) {}
func (NopUI) RadioTalkingChanged(bool)         {}

// NopCues completes every talk cue immediately and drops lip sync.
type NopCues struct{}

func (NopCues) StartRadioTalkCue(done func(ready bool)) { done(true) }
func (NopCues) StopRadioTalkCue()                       {}
func (NopCues) SetLips(world.EntityID, bool)            {}
