package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Defaults
const (
	DefaultShutdownTimeoutS = 5
	DefaultHistorySize      = 30
	DefaultMinFrameSize     = 60
	DefaultMarkerRadius     = 10
	DefaultMarkerThickness  = 10
	DefaultMarkerColor      = "#00FF00"
	DefaultJPEGQuality      = 80
	DefaultPoolSize         = 4
	DefaultBaud             = 115200
	ClientIDPrefix          = "bciselect-"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "text"}
	// commandTokens that aliases may map onto
	commandTokens = []string{"Left", "Right", "Confirm"}
)

// Validate checks if the configuration is valid and fills in defaults
func Validate(cfg *Config) error {

	if cfg.ShutdownTimeoutS < 0 {
		return fmt.Errorf("shutdown_timeout_s must be >= 0")
	}
	if cfg.ShutdownTimeoutS == 0 {
		cfg.ShutdownTimeoutS = DefaultShutdownTimeoutS
	}

	// log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !contains(validLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of %v, got %q", validLevels, cfg.Log.Level)
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if !contains(validFormats, cfg.Log.Format) {
		return fmt.Errorf("log.format must be one of %v, got %q", validFormats, cfg.Log.Format)
	}

	if err := validateSelection(&cfg.Selection); err != nil {
		return err
	}

	if err := validateRender(&cfg.Render); err != nil {
		return err
	}

	// capture
	if cfg.Capture.FPS < 0 || cfg.Capture.Width < 0 || cfg.Capture.Height < 0 {
		return fmt.Errorf("capture width, height and fps must be >= 0")
	}

	// stream
	if cfg.Stream.JPEGQuality == 0 {
		cfg.Stream.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Stream.JPEGQuality < 1 || cfg.Stream.JPEGQuality > 100 {
		return fmt.Errorf("stream.jpeg_quality must be 1-100, got %d", cfg.Stream.JPEGQuality)
	}
	if cfg.Stream.MaxWidth < 0 || cfg.Stream.MaxHeight < 0 {
		return fmt.Errorf("stream max_width and max_height must be >= 0")
	}
	if cfg.Stream.PoolSize <= 0 {
		cfg.Stream.PoolSize = DefaultPoolSize
	}

	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}

	// serial
	if cfg.Serial.Enabled && cfg.Serial.Path == "" {
		return fmt.Errorf("serial.path is required when serial is enabled")
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must be > 0")
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}

	return nil
}

func validateSelection(sel *SelectionConfig) error {

	if sel.HistorySize == nil {
		size := DefaultHistorySize
		sel.HistorySize = &size
	}
	if *sel.HistorySize < 0 {
		return fmt.Errorf("selection.history_size must be >= 0")
	}

	for alias, token := range sel.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("selection.aliases: empty alias for %q", token)
		}
		if !contains(commandTokens, token) {
			return fmt.Errorf("selection.aliases: %q maps to %q, must be one of %v",
				alias, token, commandTokens)
		}
	}

	return nil
}

func validateRender(r *RenderConfig) error {

	if r.MinFrameSize < 0 {
		return fmt.Errorf("render.min_frame_size must be >= 0")
	}
	if r.MinFrameSize == 0 {
		r.MinFrameSize = DefaultMinFrameSize
	}

	if r.Marker.Radius < 0 || r.Marker.Thickness < 0 {
		return fmt.Errorf("render.marker radius and thickness must be >= 0")
	}
	if r.Marker.Radius == 0 {
		r.Marker.Radius = DefaultMarkerRadius
	}
	if r.Marker.Thickness == 0 {
		r.Marker.Thickness = DefaultMarkerThickness
	}
	if r.Marker.Color == "" {
		r.Marker.Color = DefaultMarkerColor
	}
	if !validHex(r.Marker.Color) {
		return fmt.Errorf("render.marker.color must be #RRGGBB, got %q", r.Marker.Color)
	}

	return nil
}

func validateMQTT(m *MQTTConfig) error {

	if m.ClientID == "" {
		m.ClientID = ClientIDPrefix + uuid.NewString()
	}

	// Set default topics if not provided
	if m.Topics.Command == "" {
		m.Topics.Command = "bciselect/command"
	}
	if m.Topics.Objects == "" {
		m.Topics.Objects = "bciselect/objects"
	}
	if m.Topics.ObjectID == "" {
		m.Topics.ObjectID = "bciselect/object_id"
	}

	// Set default QoS if not provided
	if m.QoS == nil {
		m.QoS = map[string]byte{
			"command":   1,
			"objects":   0,
			"object_id": 1,
			"image":     0,
		}
	}

	for name, qos := range m.QoS {
		if qos > 2 {
			return fmt.Errorf("mqtt.qos.%s must be 0, 1 or 2, got %d", name, qos)
		}
	}

	return nil
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
