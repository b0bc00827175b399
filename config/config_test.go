package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultShutdownTimeoutS, cfg.ShutdownTimeoutS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NotNil(t, cfg.Selection.HistorySize)
	assert.Equal(t, DefaultHistorySize, *cfg.Selection.HistorySize)
	assert.False(t, cfg.Selection.RefreshOnNavigate)
	assert.Equal(t, DefaultMinFrameSize, cfg.Render.MinFrameSize)
	assert.Equal(t, MarkerConfig{Radius: 10, Thickness: 10, Color: "#00FF00"}, cfg.Render.Marker)
	assert.Equal(t, DefaultJPEGQuality, cfg.Stream.JPEGQuality)
	assert.Equal(t, DefaultPoolSize, cfg.Stream.PoolSize)
	assert.Equal(t, DefaultBaud, cfg.Serial.Baud)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, ClientIDPrefix))
	assert.Equal(t, MQTTTopics{
		Command:  "bciselect/command",
		Objects:  "bciselect/objects",
		ObjectID: "bciselect/object_id",
	}, cfg.MQTT.Topics)
	assert.Equal(t, byte(1), cfg.MQTT.QoS["object_id"])
}

func TestLoad(t *testing.T) {
	data := `
log:
  level: DEBUG
selection:
  refresh_on_navigate: true
  history_size: 0
  aliases:
    L: Left
    R: Right
    OK: Confirm
render:
  marker:
    color: "#FF0000"
  status: true
stream:
  addr: ":8080"
  max_width: 640
mqtt:
  broker: localhost:1883
  client_id: node-a
  topics:
    image: camera/image
serial:
  enabled: true
  path: /dev/ttyUSB0
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Selection.RefreshOnNavigate)
	assert.Equal(t, 0, *cfg.Selection.HistorySize)
	assert.Equal(t, "Confirm", cfg.Selection.Aliases["OK"])
	assert.Equal(t, "#FF0000", cfg.Render.Marker.Color)
	assert.Equal(t, 10, cfg.Render.Marker.Radius)
	assert.True(t, cfg.Render.Status)
	assert.Equal(t, ":8080", cfg.Stream.Addr)
	assert.Equal(t, 640, cfg.Stream.MaxWidth)
	assert.Equal(t, "node-a", cfg.MQTT.ClientID)
	assert.Equal(t, "camera/image", cfg.MQTT.Topics.Image)
	assert.Equal(t, "bciselect/command", cfg.MQTT.Topics.Command)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Path)
	assert.Equal(t, DefaultBaud, cfg.Serial.Baud)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {

	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "log: [unclosed"},
		{"log level", "log:\n  level: verbose"},
		{"log format", "log:\n  format: xml"},
		{"history size", "selection:\n  history_size: -1"},
		{"alias target", "selection:\n  aliases:\n    Up: Forward"},
		{"marker color", "render:\n  marker:\n    color: green"},
		{"marker radius", "render:\n  marker:\n    radius: -2"},
		{"min frame size", "render:\n  min_frame_size: -1"},
		{"jpeg quality", "stream:\n  jpeg_quality: 101"},
		{"qos", "mqtt:\n  qos:\n    command: 3"},
		{"serial path", "serial:\n  enabled: true"},
		{"capture fps", "capture:\n  fps: -5"},
		{"shutdown", "shutdown_timeout_s: -1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}
