// Package config loads and hot-reloads a session's tunables. Grounded on
// aws-amazon-ssm-agent/agent/appconfig's constants-driven defaults and the
// retrieval pack's yaml.v2-based config style.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// SessionConfig holds the knobs a Session's sockets are built with. Fields
// left zero at load time are filled in from Default() by Load.
type SessionConfig struct {
	// MaxMessageSize bounds a single incoming frame's body+header length.
	// Zero means the core's own internal cap (64 MiB) applies.
	MaxMessageSize uint64 `yaml:"max_message_size"`

	// SignalBusCapacity sizes each socket's bounded signal bus. This is
	// fixed once at socket construction — spec.md's Open Question
	// resolution: a live session never resizes its bus.
	SignalBusCapacity uint64 `yaml:"signal_bus_capacity"`

	// ReconnectInterval is the fixed (non-exponential) delay between a
	// lost dial and the next attempt.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`

	// RebindInterval is the fixed delay between a failed Accept and the
	// next attempt on the same listener.
	RebindInterval time.Duration `yaml:"rebind_interval"`

	// AcceptBacklog is loaded and defaulted here, but Session does not pass
	// it on: the tcp transport a Session registers has MaxAccept 0, so its
	// listeners accept without a bound.
	AcceptBacklog int `yaml:"accept_backlog"`

	// DefaultSendPriority/DefaultRecvPriority are loaded and defaulted here,
	// but neither Session nor core reads them: every new pipe starts at
	// protocol.DefaultPriority.
	DefaultSendPriority int `yaml:"default_send_priority"`
	DefaultRecvPriority int `yaml:"default_recv_priority"`
}

// Default returns the built-in configuration used when no file is present.
func Default() SessionConfig {
	return SessionConfig{
		SignalBusCapacity:   4096,
		ReconnectInterval:   500 * time.Millisecond,
		RebindInterval:      500 * time.Millisecond,
		AcceptBacklog:       128,
		DefaultSendPriority: 8,
		DefaultRecvPriority: 8,
	}
}

// Load reads a YAML SessionConfig from path, filling any zero-valued field
// in with Default()'s value. A missing file is not an error: Load returns
// Default() unchanged, matching log.GetLogger()'s own fall-back-quietly
// behavior for a missing seelog.xml.
func Load(path string) (SessionConfig, error) {
	def := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	cfg := def
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return def, err
	}
	cfg.fillDefaults(def)
	return cfg, nil
}

func (c *SessionConfig) fillDefaults(def SessionConfig) {
	if c.SignalBusCapacity == 0 {
		c.SignalBusCapacity = def.SignalBusCapacity
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = def.ReconnectInterval
	}
	if c.RebindInterval == 0 {
		c.RebindInterval = def.RebindInterval
	}
	if c.AcceptBacklog == 0 {
		c.AcceptBacklog = def.AcceptBacklog
	}
	if c.DefaultSendPriority == 0 {
		c.DefaultSendPriority = def.DefaultSendPriority
	}
	if c.DefaultRecvPriority == 0 {
		c.DefaultRecvPriority = def.DefaultRecvPriority
	}
}
