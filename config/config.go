package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete selection node configuration
type Config struct {
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"` // graceful shutdown timeout in seconds (default: 5)
	Log              LogConfig       `yaml:"log"`
	Selection        SelectionConfig `yaml:"selection"`
	Render           RenderConfig    `yaml:"render"`
	Capture          CaptureConfig   `yaml:"capture"`
	Stream           StreamConfig    `yaml:"stream"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
	Serial           SerialConfig    `yaml:"serial"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SelectionConfig contains selection tracker settings
type SelectionConfig struct {
	RefreshOnNavigate bool `yaml:"refresh_on_navigate"`
	// HistorySize of the marker trail, 0 disables it (default: 30)
	HistorySize *int `yaml:"history_size,omitempty"`
	// Aliases maps extra command tokens onto Left, Right or Confirm
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// RenderConfig contains annotation settings
type RenderConfig struct {
	MinFrameSize int          `yaml:"min_frame_size"` // frame dims must exceed this to draw (default: 60)
	Marker       MarkerConfig `yaml:"marker"`
	Candidates   bool         `yaml:"candidates"` // draw every detection
	Labels       bool         `yaml:"labels"`     // label candidates with their planning id
	Trail        bool         `yaml:"trail"`
	Status       bool         `yaml:"status"`
}

// MarkerConfig defines the selection marker
type MarkerConfig struct {
	Radius    int    `yaml:"radius"`
	Thickness int    `yaml:"thickness"`
	Color     string `yaml:"color"` // #RRGGBB
}

// CaptureConfig contains local video capture settings
type CaptureConfig struct {
	// Source is a device index, file or stream URL, empty disables capture
	Source string `yaml:"source"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`  // paces reads when > 0
	Loop   bool   `yaml:"loop"` // restart file sources at the end
}

// StreamConfig contains annotated frame output settings
type StreamConfig struct {
	Addr        string `yaml:"addr"` // http listen address, empty disables the server
	JPEGQuality int    `yaml:"jpeg_quality"`
	MaxWidth    int    `yaml:"max_width"`
	MaxHeight   int    `yaml:"max_height"`
	Preview     bool   `yaml:"preview"` // local preview window
	PoolSize    int    `yaml:"pool_size"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker   string          `yaml:"broker"` // host:port, empty disables mqtt
	ClientID string          `yaml:"client_id"`
	Username string          `yaml:"username"`
	Password string          `yaml:"password"`
	Topics   MQTTTopics      `yaml:"topics"`
	QoS      map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Command  string `yaml:"command"`
	Objects  string `yaml:"objects"`
	ObjectID string `yaml:"object_id"`
	Image    string `yaml:"image"` // empty disables frames over mqtt
}

// SerialConfig contains the serial command reader settings
type SerialConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Baud    int    `yaml:"baud"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses and validates YAML configuration data
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied
func Default() *Config {
	var cfg Config

	// an empty config always validates
	_ = Validate(&cfg)

	return &cfg
}
