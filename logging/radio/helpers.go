package radio

import (
	"context"

	"gridvoice/server/logging"
)

const (
	// EventFrequencyJoined is emitted when a participant tunes a channel to
	// a frequency.
	EventFrequencyJoined logging.EventType = "radio.frequency_joined"
	// EventFrequencyLeft is emitted when a participant leaves a frequency,
	// including implicit leaves on retune and disconnect.
	EventFrequencyLeft logging.EventType = "radio.frequency_left"
	// EventTalkFanout is emitted when a talk state change is fanned out to
	// the frequency's members.
	EventTalkFanout logging.EventType = "radio.talk_fanout"
	// EventTransmissionDropped is emitted when a talker outside tower
	// coverage is suppressed on a long-range frequency.
	EventTransmissionDropped logging.EventType = "radio.transmission_dropped"
)

// FrequencyPayload captures a frequency membership change.
type FrequencyPayload struct {
	Channel   int    `json:"channel"`
	Frequency string `json:"frequency"`
	Members   int    `json:"members"`
}

// FanoutPayload captures a talk fan-out result.
type FanoutPayload struct {
	Frequency string `json:"frequency"`
	Talking   bool   `json:"talking"`
	Targets   int    `json:"targets"`
	Whisper   bool   `json:"whisper,omitempty"`
}

// FrequencyJoined publishes a debug event for a frequency join.
func FrequencyJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FrequencyPayload) {
	publish(ctx, pub, EventFrequencyJoined, logging.SeverityDebug, actor, payload)
}

// FrequencyLeft publishes a debug event for a frequency leave.
func FrequencyLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FrequencyPayload) {
	publish(ctx, pub, EventFrequencyLeft, logging.SeverityDebug, actor, payload)
}

// TalkFanout publishes a debug event for a talk fan-out.
func TalkFanout(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FanoutPayload) {
	publish(ctx, pub, EventTalkFanout, logging.SeverityDebug, actor, payload)
}

// TransmissionDropped publishes an info event when tower gating suppresses a
// transmission.
func TransmissionDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload FanoutPayload) {
	publish(ctx, pub, EventTransmissionDropped, logging.SeverityInfo, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryRadio,
		Payload:  payload,
	})
}
