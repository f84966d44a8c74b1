package logging

import "time"

// Config controls the event router shared by the authority and every
// participant session. One router serves the whole process; sessions
// publish into it concurrently.
type Config struct {
	// EnabledSinks names the sinks the service wires up. The console sink
	// is always a candidate; the json sink needs a file path from the
	// service config.
	EnabledSinks []string
	// BufferSize bounds the publish queue. Voice events are bursty around
	// joins and retunes but the steady state is quiet, so a modest queue
	// absorbs the spikes.
	BufferSize      int
	MinimumSeverity Severity
	// Fields are merged into every event's extra map, e.g. the server
	// guid, so multi-server log aggregation can tell deployments apart.
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

// JSONConfig tunes the batching file sink.
type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       256,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 10 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      64,
			FlushInterval: time.Second,
		},
	}
}

// normalized applies floors so a zero-value or partially filled Config is
// still usable by the router.
func (c Config) normalized() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.DropWarnInterval <= 0 {
		c.DropWarnInterval = 10 * time.Second
	}
	return c
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
