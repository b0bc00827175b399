/*
Command bciselect runs a selection node.  Detection sets and command tokens are
received over MQTT (and optionally a serial line), frames from a local capture
source or the MQTT image topic.  Annotated frames are served as an MJPEG stream
and confirmed planning IDs are published back over MQTT.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/swdee/go-bciselect"
	"github.com/swdee/go-bciselect/capture"
	"github.com/swdee/go-bciselect/config"
	"github.com/swdee/go-bciselect/selection"
	"github.com/swdee/go-bciselect/stream"
	"github.com/swdee/go-bciselect/transport/mqtt"
	"github.com/swdee/go-bciselect/transport/serial"
	"gocv.io/x/gocv"
)

func main() {
	// read in cli flags
	configPath := flag.String("config", "", "Path to YAML configuration file, defaults are used if not set")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()

	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)

		if err != nil {
			slog.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.Log, *debug)
	slog.SetDefault(logger)

	logger.Info("starting bciselect node",
		"config", *configPath,
		"refresh_on_navigate", cfg.Selection.RefreshOnNavigate)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("node stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("bciselect node stopped")
}

// newLogger sets up the structured logger, debug overrides the configured
// level
func newLogger(cfg config.LogConfig, debug bool) *slog.Logger {

	var level slog.Level

	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var emitter selection.Emitter

	// mqtt transport
	var client *mqtt.Client

	if cfg.MQTT.Broker != "" {
		client = mqtt.New(cfg.MQTT, logger)

		if err := client.Connect(ctx); err != nil {
			return err
		}

		defer client.Disconnect()
		emitter = client
	} else {
		logger.Warn("no mqtt broker configured, confirmations are only available on /events")
	}

	node, err := bciselect.NewFromConfig(cfg, emitter, logger)

	if err != nil {
		return err
	}

	defer node.Close()

	// components run until ctx is cancelled, the first to fail stops the node
	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	start := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case errChan <- err:
				default:
				}
			}
		}()
	}

	// mjpeg stream server
	if cfg.Stream.Addr != "" {
		server := stream.NewServer(cfg.Stream, func() interface{} {
			status := node.Status()
			return struct {
				bciselect.Status
				MQTT *mqtt.Stats `json:"mqtt,omitempty"`
			}{status, mqttStats(client)}
		}, logger)

		defer server.Close()

		server.SetEvents(node.Broadcaster())
		node.AddSink(server)

		start(func() error { return server.ListenAndServe(ctx) })
	}

	// local preview window
	var preview *previewSink

	if cfg.Stream.Preview {
		preview = newPreviewSink()
		defer preview.Close()
		node.AddSink(preview)
	}

	if client != nil {
		handlers := mqtt.Handlers{
			OnCommand: func(token string) { node.HandleCommand(token) },
			OnObjects: func(payload []byte) { node.HandleDetections(payload) },
		}

		if cfg.MQTT.Topics.Image != "" {
			handlers.OnImage = node.HandleImagePayload
		}

		if err := client.Subscribe(ctx, handlers); err != nil {
			return err
		}
	}

	// serial command reader
	if cfg.Serial.Enabled {
		port, err := serial.Open(cfg.Serial.Path, cfg.Serial.Baud)

		if err != nil {
			return err
		}

		reader := serial.NewReader(port, func(token string) {
			node.HandleCommand(token)
		}, logger)

		defer reader.Close()

		start(func() error { return reader.Monitor(ctx) })
	}

	// local capture source
	if cfg.Capture.Source != "" {
		src, err := capture.Open(cfg.Capture, logger)

		if err != nil {
			return err
		}

		defer src.Close()

		start(func() error {
			return src.Run(ctx, func(img gocv.Mat) {
				if err := node.HandleFrame(img); err != nil {
					logger.Warn("failed to handle captured frame", "error", err)
				}
			})
		})
	} else if cfg.MQTT.Topics.Image == "" || client == nil {
		logger.Warn("no frame source configured, the selection is not rendered")
	}

	var runErr error
	waitDone := make(chan struct{})

	go func() {
		defer close(waitDone)
		select {
		case <-ctx.Done():
		case runErr = <-errChan:
		}
		cancel()
	}()

	if preview != nil {
		// gocv windows must be driven from the main goroutine
		preview.Run(ctx)
		cancel()
	}

	<-waitDone

	timeout := time.Duration(cfg.ShutdownTimeoutS) * time.Second
	logger.Info("shutting down gracefully", "timeout", timeout)

	stopped := make(chan struct{})

	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("components did not stop before the shutdown timeout")
	}

	return runErr
}

func mqttStats(client *mqtt.Client) *mqtt.Stats {
	if client == nil {
		return nil
	}
	stats := client.Stats()
	return &stats
}
