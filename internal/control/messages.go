// Package control maintains the persistent duplex session to the external
// voice backend and speaks its framed JSON protocol. Exactly one Channel
// exists per local participant; all routing decisions leave the process
// through it.
package control

import (
	"gridvoice/server/internal/world"
)

// Request type identifiers carried in the base envelope.
const (
	RequestTypeInit   = "INIT"
	RequestTypeIngame = "INGAME"
)

// Response codes reported by the voice backend.
const (
	CodeOK            = "OK"
	CodeTalkState     = "TALK_STATE"
	CodeSoundState    = "SOUND_STATE"
	CodeOtherTalk     = "OTHER_TALK_STATE"
	CodeMovedChannel  = "MOVED_CHANNEL"
	CodeHeartbeat     = "HEARTBEAT"
	CodeOutdated      = "OUTDATED_VERSION"
	CodeWrongServer   = "WRONG_TS_SERVER"
	CodeNotConnected  = "NOT_CONNECTED"
	CodeMoveError     = "MOVE_ERROR"
	CodeWaitGameInit  = "WAIT_GAME_INIT"
	CodeMaxPlayers    = "MAX_PLAYER_COUNT_REACHED"
	CodeLicenseserver = "LICENSE_SERVER_TIMED_OUT"
)

// RequestTypeJoin is the requestType value accompanying the OK code once the
// backend has moved the participant into the ingame channel.
const RequestTypeJoin = "JOIN"

// Operation modes sent with INIT.
const (
	ModeBroadcast = 0
	ModeWhisper   = 1
)

// Base is the envelope header on every outbound request.
type Base struct {
	RequestType string `json:"request_type"`
}

// Member is one participant inside a comm device link.
type Member struct {
	ClientID   int     `json:"client_id"`
	Mode       string  `json:"mode"`
	ErrorLevel float64 `json:"errorLevel,omitempty"`
}

// CommDevice toggles an audio relationship between participants.
type CommDevice struct {
	On       bool     `json:"on"`
	CommType string   `json:"comm_type"`
	Members  []Member `json:"members"`
	Channel  int      `json:"channel,omitempty"`
	Range    float64  `json:"range,omitempty"`
}

// CommDeviceSettings updates volume or stereo output for a device type.
type CommDeviceSettings struct {
	CommType   string   `json:"comm_type"`
	Volume     *float64 `json:"volume,omitempty"`
	OutputMode string   `json:"output_mode,omitempty"`
	Channel    int      `json:"channel,omitempty"`
}

// CommDeviceLeft releases every link a set of clients held on a channel.
type CommDeviceLeft struct {
	CommType  string `json:"comm_type"`
	ClientIDs []int  `json:"client_ids"`
	Channel   int    `json:"channel"`
}

// FrameEntry is one neighbor record inside the periodic positional frame.
type FrameEntry struct {
	ClientID     int        `json:"client_id"`
	Position     world.Vec3 `json:"position"`
	Direction    world.Vec3 `json:"direction"`
	Range        float64    `json:"range"`
	IsUnderwater bool       `json:"is_underwater"`
	MuffleLevel  float64    `json:"muffle_intensity"`
	IsMuted      bool       `json:"is_muted"`
}

// PlayerFrame is the periodic full positional snapshot.
type PlayerFrame struct {
	Direction    world.Vec3   `json:"player_direction"`
	Position     world.Vec3   `json:"player_position"`
	Range        float64      `json:"player_range"`
	IsUnderwater bool         `json:"player_is_underwater"`
	IsMuted      bool         `json:"player_is_muted"`
	Players      []FrameEntry `json:"players_list"`
}

// Request is the outbound envelope. INIT fields sit flat beside the base;
// INGAME requests carry exactly one of the pointer payloads.
type Request struct {
	Base Base `json:"base"`

	ServerGUID       string `json:"server_guid,omitempty"`
	IngameName       string `json:"ingame_name,omitempty"`
	IngameChannel    int    `json:"ingame_channel,omitempty"`
	DefaultChannel   int    `json:"default_channel,omitempty"`
	ChannelPassword  string `json:"ingame_channel_password,omitempty"`
	ExcludedChannels []int  `json:"excluded_channels,omitempty"`
	MufflingRange    int    `json:"muffling_range,omitempty"`
	Debug            bool   `json:"build_debug,omitempty"`
	UnmuteDelay      int    `json:"unmute_delay,omitempty"`
	OperationMode    int    `json:"operation_mode,omitempty"`

	CommDevice         *CommDevice         `json:"comm_device,omitempty"`
	CommDeviceSettings *CommDeviceSettings `json:"comm_device_settings,omitempty"`
	CommDeviceLeft     *CommDeviceLeft     `json:"comm_device_left,omitempty"`
	Player             *PlayerFrame        `json:"player,omitempty"`
}

// Response is the inbound envelope from the backend.
type Response struct {
	Code        string `json:"code"`
	RequestType string `json:"requestType"`
	Message     string `json:"message"`
}

// translations maps backend-reported fault codes to user-facing messages.
// Unknown codes fall through to a generic message so faults are never
// silently swallowed.
var translations = map[string]string{
	CodeOutdated:      "You don't use the required voice plugin version!",
	CodeWrongServer:   "You are connected to the wrong voice server!",
	CodeNotConnected:  "You are connected to the wrong voice server!",
	CodeMoveError:     "Error while moving into the ingame voice channel!",
	CodeWaitGameInit:  "",
	CodeMaxPlayers:    "The voice server is full!",
	CodeLicenseserver: "The voice license server timed out, try again later!",
}

// TranslateCode resolves a backend fault code to a user-facing message. The
// second return reports whether the code was known; unknown codes still get
// a message.
func TranslateCode(code string) (string, bool) {
	if msg, ok := translations[code]; ok {
		return msg, true
	}
	return "Unknown voice error!", false
}
