package telephony

import (
	"context"

	"gridvoice/server/logging"
)

const (
	// EventCallStarted is emitted when both directions of a call edge are
	// added to the call graph.
	EventCallStarted logging.EventType = "telephony.call_started"
	// EventCallEnded is emitted when a call edge is removed.
	EventCallEnded logging.EventType = "telephony.call_ended"
	// EventSpeakerToggled is emitted when phone-speaker broadcast is turned
	// on or off for a participant.
	EventSpeakerToggled logging.EventType = "telephony.speaker_toggled"
)

// CallPayload captures a call graph change.
type CallPayload struct {
	Peer     string `json:"peer"`
	Historic bool   `json:"historic,omitempty"`
}

// SpeakerPayload captures a phone-speaker broadcast change.
type SpeakerPayload struct {
	Enabled bool `json:"enabled"`
	Members int  `json:"members"`
}

// CallStarted publishes an info event for a new call edge.
func CallStarted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload CallPayload) {
	publish(ctx, pub, EventCallStarted, logging.SeverityInfo, actor, payload)
}

// CallEnded publishes an info event for a removed call edge.
func CallEnded(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload CallPayload) {
	publish(ctx, pub, EventCallEnded, logging.SeverityInfo, actor, payload)
}

// SpeakerToggled publishes a debug event for a speaker broadcast change.
func SpeakerToggled(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SpeakerPayload) {
	publish(ctx, pub, EventSpeakerToggled, logging.SeverityDebug, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryTelephony,
		Payload:  payload,
	})
}
