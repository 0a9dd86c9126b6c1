package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transport mode constants
const (
	TransportMemory = "memory" // in-process only
	TransportNATS   = "nats"   // NATS-backed, cross-process
)

// Config is the complete bridge configuration.
type Config struct {
	Participant ParticipantConfig `json:"participant"`
	Transport   TransportConfig   `json:"transport"`
	NATS        NATSConfig        `json:"nats,omitempty"`
	Metrics     MetricsConfig     `json:"metrics,omitempty"`
	Health      HealthConfig      `json:"health,omitempty"`
}

// ParticipantConfig identifies this participant in the domain
type ParticipantConfig struct {
	Name    string `json:"name"`
	Enclave string `json:"enclave,omitempty"`
}

// TransportConfig selects and tunes the data plane
type TransportConfig struct {
	Mode          string   `json:"mode"`                     // memory or nats
	QueueDepth    int      `json:"queue_depth,omitempty"`    // default reader queue depth
	FallbackDepth int      `json:"fallback_depth,omitempty"` // per-topic fallback queue bound
	ShmTopics     []string `json:"shm_topics,omitempty"`     // topics on the single-slot fast path
}

// NATSConfig defines the NATS connection for the nats transport mode
type NATSConfig struct {
	URL           string        `json:"url,omitempty"`
	SubjectPrefix string        `json:"subject_prefix,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           TLSConfig     `json:"tls,omitempty"`
}

// TLSConfig for secure NATS connections
type TLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// HealthConfig controls the health endpoint
type HealthConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Participant: ParticipantConfig{Name: "ddsbridge"},
		Transport:   TransportConfig{Mode: TransportMemory},
	}
}

// Load reads a JSON config file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override individual fields. Unset
// variables leave the file values alone.
func (c *Config) applyEnv() {
	if v := os.Getenv("DDSBRIDGE_PARTICIPANT"); v != "" {
		c.Participant.Name = v
	}
	if v := os.Getenv("DDSBRIDGE_ENCLAVE"); v != "" {
		c.Participant.Enclave = v
	}
	if v := os.Getenv("DDSBRIDGE_TRANSPORT"); v != "" {
		c.Transport.Mode = v
	}
	if v := os.Getenv("DDSBRIDGE_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transport.QueueDepth = n
		}
	}
	if v := os.Getenv("DDSBRIDGE_SHM_TOPICS"); v != "" {
		c.Transport.ShmTopics = splitList(v)
	}
	if v := os.Getenv("DDSBRIDGE_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("DDSBRIDGE_NATS_TOKEN"); v != "" {
		c.NATS.Token = v
	}
	if v := os.Getenv("DDSBRIDGE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Metrics.Enabled = true
			c.Metrics.Port = n
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks field combinations the loaders cannot
func (c *Config) Validate() error {
	if c.Participant.Name == "" {
		return fmt.Errorf("participant name is required")
	}
	switch c.Transport.Mode {
	case TransportMemory:
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats transport requires nats.url")
		}
	default:
		return fmt.Errorf("unknown transport mode %q", c.Transport.Mode)
	}
	if c.Transport.QueueDepth < 0 {
		return fmt.Errorf("queue_depth must not be negative")
	}
	if c.Transport.FallbackDepth < 0 {
		return fmt.Errorf("fallback_depth must not be negative")
	}
	if c.NATS.TLS.Enabled && (c.NATS.TLS.CertFile == "" || c.NATS.TLS.KeyFile == "") {
		return fmt.Errorf("tls requires cert_file and key_file")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics port %d out of range", c.Metrics.Port)
	}
	if c.Health.Enabled && (c.Health.Port < 0 || c.Health.Port > 65535) {
		return fmt.Errorf("health port %d out of range", c.Health.Port)
	}
	return nil
}

// Clone deep-copies the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// SafeConfig provides thread-safe access to a configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps cfg for concurrent use
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
