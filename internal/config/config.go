// Package config loads the station's layered configuration: a
// station-wide file, an optional per-slave override file for the
// multi-process extension (spec.md §5), and environment overrides,
// following the teacher's Load/applyEnvOverrides/validate pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the station's top-level configuration.
type Config struct {
	Station StationConfig `yaml:"station"`
	Log     LogConfig     `yaml:"log"`
	Radio   RadioConfig   `yaml:"radio"`
	LNS     LNSConfig     `yaml:"lns"`
	IPC     IPCConfig     `yaml:"ipc"`
	Status  StatusConfig  `yaml:"status"`
	Slave   SlaveConfig   `yaml:"slave"`
}

// StationConfig names this station instance and its region.
type StationConfig struct {
	StationEUI string `yaml:"station_eui"`
	Region     string `yaml:"region"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level string `yaml:"level"` // trace|debug|info|warn|error
	File  string `yaml:"file"`  // empty = stderr
}

// RadioConfig describes the concentrator and RF front-end setup this
// instance uses to allocate channels, grounded on sx130xconf.h.
type RadioConfig struct {
	Backend       string  `yaml:"backend"` // "simulator" is the only shipped backend
	MaxIFChains   int     `yaml:"max_if_chains"`
	RF0CenterFreq uint32  `yaml:"rf0_center_freq"`
	RF1CenterFreq uint32  `yaml:"rf1_center_freq"`
	AntennaGain   float64 `yaml:"antenna_gain"`
	CN470Mode     string  `yaml:"cn470_mode,omitempty"`
}

// LNSConfig is the LNS WebSocket endpoint and TLS material.
type LNSConfig struct {
	URI              string        `yaml:"uri"`
	DiscoveryURI     string        `yaml:"discovery_uri,omitempty"`
	CertFile         string        `yaml:"cert_file,omitempty"`
	KeyFile          string        `yaml:"key_file,omitempty"`
	CAFile           string        `yaml:"ca_file,omitempty"`
	ProtocolFormat   string        `yaml:"protocol_format"` // "json" or "binary"
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
	ProtocolVersion  string        `yaml:"protocol_version,omitempty"` // LNS-advertised version to negotiate against at startup, empty = skip
}

// IPCConfig configures the NATS-backed master/slave IPC fabric.
type IPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Role    string `yaml:"role"` // "master" or "slave"
}

// StatusConfig configures the local status/health/metrics HTTP surface.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SlaveConfig carries the slave id this instance uses to derive its
// IPC subjects when IPC.Role == "slave".
type SlaveConfig struct {
	ID string `yaml:"id,omitempty"`
}

// Load reads a station config file, layering an optional slave
// override file on top, then applies environment overrides.
func Load(filename string, slaveOverrideFile string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", filename, err)
	}

	if slaveOverrideFile != "" {
		sdata, err := os.ReadFile(slaveOverrideFile)
		if err != nil {
			return nil, fmt.Errorf("config: read slave override %s: %w", slaveOverrideFile, err)
		}
		if err := yaml.Unmarshal(sdata, &cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal slave override %s: %w", slaveOverrideFile, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if region := os.Getenv("STATION_REGION"); region != "" {
		c.Station.Region = region
	}
	if uri := os.Getenv("STATION_LNS_URI"); uri != "" {
		c.LNS.URI = uri
	}
	if level := os.Getenv("STATION_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if natsURL := os.Getenv("STATION_NATS_URL"); natsURL != "" {
		c.IPC.NATSURL = natsURL
	}
	if slaveID := os.Getenv("STATION_SLAVE_ID"); slaveID != "" {
		c.Slave.ID = slaveID
	}
}

func (c *Config) validate() error {
	if c.Station.Region == "" {
		return fmt.Errorf("station.region is required")
	}
	if c.LNS.URI == "" && c.LNS.DiscoveryURI == "" {
		return fmt.Errorf("lns.uri or lns.discovery_uri is required")
	}
	if c.LNS.ProtocolFormat == "" {
		c.LNS.ProtocolFormat = "json"
	}
	if c.LNS.ProtocolFormat != "json" && c.LNS.ProtocolFormat != "binary" {
		return fmt.Errorf("lns.protocol_format must be json or binary, got %q", c.LNS.ProtocolFormat)
	}
	if c.Radio.Backend == "" {
		c.Radio.Backend = "simulator"
	}
	if c.Radio.MaxIFChains == 0 {
		c.Radio.MaxIFChains = 8
	}
	if c.IPC.Enabled {
		if c.IPC.Role != "master" && c.IPC.Role != "slave" {
			return fmt.Errorf("ipc.role must be master or slave when ipc.enabled")
		}
		if c.IPC.Role == "slave" && c.Slave.ID == "" {
			return fmt.Errorf("slave.id is required when ipc.role is slave")
		}
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":8090"
	}
	return nil
}

// Summary returns a one-line human-readable description of the loaded
// config, logged at startup and printed by -show-config.
func (c *Config) Summary() string {
	return fmt.Sprintf("region=%s lns=%s protocol=%s radio_backend=%s ipc_role=%s",
		c.Station.Region, c.LNS.URI, c.LNS.ProtocolFormat, c.Radio.Backend, c.IPC.Role)
}
