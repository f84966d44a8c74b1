package control

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gridvoice/server/internal/telemetry"
	"gridvoice/server/logging"
	lognetwork "gridvoice/server/logging/network"
)

// State reflects the lifecycle of the websocket session.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

const (
	defaultWriteWait          = 10 * time.Second
	defaultDialTimeout        = 5 * time.Second
	defaultReconnectDelay     = 2 * time.Second
	defaultHeartbeatInterval  = 1500 * time.Millisecond
	defaultHeartbeatTimeout   = 4 * time.Second
	defaultLivenessInterval   = time.Second
	defaultLivenessThreshold  = 120
)

// InitParams carries the one-time handshake data sent on the very first
// successful connection.
type InitParams struct {
	ServerGUID       string
	IngameName       string
	IngameChannel    int
	DefaultChannel   int
	ChannelPassword  string
	ExcludedChannels []int
	MufflingRange    int
	Debug            bool
	UnmuteDelay      int
	OperationMode    int
}

// Hooks receive inbound dispatch results. All hooks are optional and are
// invoked from the channel's reader goroutine.
type Hooks struct {
	// OnJoined fires on OK/JOIN with the backend-assigned client id.
	OnJoined func(clientID int)
	// OnReady fires when a connection after the first one opens; the
	// engine uses it to renegotiate its session with the authority.
	OnReady func()
	// OnTalkState fires for TALK_STATE, SOUND_STATE and OTHER_TALK_STATE.
	OnTalkState func(code, message string)
	// OnBackendFault fires for translated fault codes; known reports
	// whether the code was in the translation table.
	OnBackendFault func(code, message string, known bool)
	// OnPluginInactive fires once after the backend plugin has been
	// unreachable for the escalation threshold.
	OnPluginInactive func()
	// OnPluginStateChanged reports transitions between reachable and
	// unreachable, for the UI hint banner.
	OnPluginStateChanged func(reachable bool)
}

// Config tunes the channel. Zero values fall back to the defaults above.
type Config struct {
	URL                string
	ParticipantID      string
	DialTimeout        time.Duration
	ReconnectDelay     time.Duration
	HeartbeatInterval  time.Duration
	HeartbeatTimeout   time.Duration
	LivenessInterval   time.Duration
	LivenessThreshold  int
	Logger             telemetry.Logger
	Metrics            telemetry.Metrics
	Publisher          logging.Publisher
}

// Channel is a persistent, auto-reconnecting duplex session to the voice
// backend. Sends are best-effort: they log and drop when the session is not
// open, never returning an error to routing callers.
type Channel struct {
	cfg   Config
	init  InitParams
	hooks Hooks

	writeMu sync.Mutex
	connMu  sync.Mutex
	conn    *websocket.Conn

	state         atomic.Int32
	firstConnect  atomic.Bool
	lastHeartbeat atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewChannel constructs a channel; Connect starts it.
func NewChannel(cfg Config, init InitParams, hooks Hooks) *Channel {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if cfg.LivenessInterval <= 0 {
		cfg.LivenessInterval = defaultLivenessInterval
	}
	if cfg.LivenessThreshold <= 0 {
		cfg.LivenessThreshold = defaultLivenessThreshold
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	ch := &Channel{cfg: cfg, init: init, hooks: hooks, stop: make(chan struct{})}
	ch.firstConnect.Store(true)
	return ch
}

// Connect starts the session loop and both monitors.
func (c *Channel) Connect() {
	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	go func() {
		defer c.wg.Done()
		c.monitorHeartbeat()
	}()
	go func() {
		defer c.wg.Done()
		c.monitorLiveness()
	}()
}

// Close tears the session down permanently.
func (c *Channel) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.closeConn()
	c.wg.Wait()
}

// State reports the current session state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Send marshals and writes one request. Delivery is best-effort: a closed
// session or write failure is logged and dropped, never surfaced.
func (c *Channel) Send(req Request) {
	if c.State() != StateOpen {
		c.cfg.Metrics.Add("control_send_dropped", 1)
		lognetwork.SendDropped(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, Reason: "not open"})
		return
	}

	data, err := json.Marshal(req)
	if err != nil {
		c.logf("control: failed to marshal %s request: %v", req.Base.RequestType, err)
		return
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(defaultWriteWait))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.logf("control: write failed, forcing restart: %v", err)
		c.forceRestart("write error")
	}
}

// forceRestart drops the current connection; the run loop reconnects.
func (c *Channel) forceRestart(reason string) {
	c.cfg.Metrics.Add("control_restarts", 1)
	lognetwork.ChannelLost(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, Reason: reason})
	c.closeConn()
}

func (c *Channel) closeConn() {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Channel) run() {
	attempt := 0
	for {
		select {
		case <-c.stop:
			c.state.Store(int32(StateClosed))
			return
		default:
		}

		attempt++
		c.state.Store(int32(StateConnecting))

		dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
		conn, resp, err := dialer.Dial(c.cfg.URL, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			c.state.Store(int32(StateClosed))
			c.logf("control: dial %s failed (attempt %d): %v", c.cfg.URL, attempt, err)
			select {
			case <-c.stop:
				return
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}

		c.connMu.Lock()
		c.conn = conn
		c.connMu.Unlock()
		c.state.Store(int32(StateOpen))
		c.touchHeartbeat()
		c.cfg.Metrics.Add("control_connects", 1)
		lognetwork.ChannelOpened(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, Attempt: attempt})

		if c.firstConnect.CompareAndSwap(true, false) {
			c.sendInit()
		} else if c.hooks.OnReady != nil {
			c.hooks.OnReady()
		}

		c.readLoop(conn)

		c.state.Store(int32(StateClosed))
		c.closeConn()

		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Channel) sendInit() {
	req := Request{
		Base:             Base{RequestType: RequestTypeInit},
		ServerGUID:       c.init.ServerGUID,
		IngameName:       c.init.IngameName,
		IngameChannel:    c.init.IngameChannel,
		DefaultChannel:   c.init.DefaultChannel,
		ChannelPassword:  c.init.ChannelPassword,
		ExcludedChannels: c.init.ExcludedChannels,
		MufflingRange:    c.init.MufflingRange,
		Debug:            c.init.Debug,
		UnmuteDelay:      c.init.UnmuteDelay,
		OperationMode:    c.init.OperationMode,
	}
	c.Send(req)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
			default:
				c.logf("control: connection lost: %v", err)
				lognetwork.ChannelLost(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, Reason: err.Error()})
			}
			return
		}
		c.dispatch(payload)
	}
}

func (c *Channel) dispatch(payload []byte) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.cfg.Metrics.Add("control_protocol_faults", 1)
		lognetwork.ProtocolFault(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, Reason: err.Error()})
		return
	}

	switch resp.Code {
	case CodeHeartbeat:
		c.touchHeartbeat()
	case CodeOK:
		if resp.RequestType == RequestTypeJoin {
			c.touchHeartbeat()
			clientID, err := strconv.Atoi(resp.Message)
			if err != nil {
				c.logf("control: malformed JOIN client id %q: %v", resp.Message, err)
				return
			}
			if c.hooks.OnJoined != nil {
				c.hooks.OnJoined(clientID)
			}
		}
	case CodeTalkState, CodeSoundState, CodeOtherTalk:
		if c.hooks.OnTalkState != nil {
			c.hooks.OnTalkState(resp.Code, resp.Message)
		}
	case CodeMovedChannel:
		c.logf("control: participant moved channel: %s", resp.Message)
	default:
		message, known := TranslateCode(resp.Code)
		if !known {
			c.logf("control: unknown response code %q", resp.Code)
		}
		if c.hooks.OnBackendFault != nil {
			c.hooks.OnBackendFault(resp.Code, message, known)
		}
	}
}

func (c *Channel) touchHeartbeat() {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

// monitorHeartbeat forces a session restart when the backend goes silent.
func (c *Channel) monitorHeartbeat() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.State() != StateOpen {
				continue
			}
			last := time.Unix(0, c.lastHeartbeat.Load())
			silent := time.Since(last)
			if silent > c.cfg.HeartbeatTimeout {
				c.cfg.Metrics.Add("control_heartbeat_restarts", 1)
				lognetwork.HeartbeatStale(context.Background(), c.cfg.Publisher, c.actor(), lognetwork.ChannelPayload{URL: c.cfg.URL, SilentMS: silent.Milliseconds()})
				c.forceRestart("heartbeat timeout")
			}
		}
	}
}

// monitorLiveness detects the backend plugin not running at all and
// escalates to participant removal after the configured threshold.
func (c *Channel) monitorLiveness() {
	ticker := time.NewTicker(c.cfg.LivenessInterval)
	defer ticker.Stop()

	failures := 0
	warned := false
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			state := c.State()
			if state == StateOpen || state == StateConnecting {
				if warned && state == StateOpen {
					warned = false
					failures = 0
					if c.hooks.OnPluginStateChanged != nil {
						c.hooks.OnPluginStateChanged(true)
					}
				}
				continue
			}

			failures++
			if !warned {
				warned = true
				if c.hooks.OnPluginStateChanged != nil {
					c.hooks.OnPluginStateChanged(false)
				}
			}
			if failures == c.cfg.LivenessThreshold {
				c.cfg.Metrics.Add("control_plugin_inactive", 1)
				if c.hooks.OnPluginInactive != nil {
					c.hooks.OnPluginInactive()
				}
			}
		}
	}
}

func (c *Channel) actor() logging.EntityRef {
	return logging.EntityRef{ID: c.cfg.ParticipantID, Kind: logging.EntityKindParticipant}
}

func (c *Channel) logf(format string, args ...any) {
	if c.cfg.Logger == nil {
		return
	}
	c.cfg.Logger.Printf(format, args...)
}
