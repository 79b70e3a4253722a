// btaudiod - Bluetooth audio policy daemon
//
// btaudiod arbitrates Bluetooth audio on a host: it watches BlueZ device
// lifecycle over D-Bus, drives A2DP/HFP profile negotiation to completion,
// switches iodevs between profiles without audible glitches, and suspends
// devices whose transports misbehave. All policy decisions run on a single
// control loop; see internal/eventloop and internal/btpolicy.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dean840513/adhd/internal/audio"
	"github.com/dean840513/adhd/internal/blocklist"
	"github.com/dean840513/adhd/internal/bluez"
	"github.com/dean840513/adhd/internal/btdir"
	"github.com/dean840513/adhd/internal/btpolicy"
	"github.com/dean840513/adhd/internal/eventloop"
	"github.com/dean840513/adhd/internal/infrastructure/config"
	"github.com/dean840513/adhd/internal/infrastructure/logging"
	"github.com/dean840513/adhd/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual daemon logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting btaudiod",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration: explicit file when given, built-in defaults
	// plus env overrides otherwise.
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// HFP blocklist store.
	store, err := blocklist.Open(cfg.Blocklist.Path)
	if err != nil {
		return fmt.Errorf("opening blocklist: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("closing blocklist", "error", closeErr)
		}
	}()
	log.Info("blocklist opened", "path", cfg.Blocklist.Path)

	// Control loop. Nothing runs on it until Run at the bottom.
	loop := eventloop.New(eventloop.Config{QueueSize: cfg.Policy.CommandQueueSize})
	loop.SetLogger(log.With("component", "eventloop"))
	defer loop.Close()

	// BlueZ monitor: snapshots known devices into the queue and pumps
	// bus signals from here on.
	monitor, err := bluez.Connect(loop)
	if err != nil {
		return fmt.Errorf("connecting to BlueZ: %w", err)
	}
	monitor.SetLogger(log.With("component", "bluez"))
	defer func() {
		if closeErr := monitor.Close(); closeErr != nil {
			log.Error("closing bluez monitor", "error", closeErr)
		}
	}()
	log.Info("bluez monitor connected")

	// Directory, audio manager and policy engine reference each other;
	// construct first, bind after.
	dir := btdir.New(loop, monitor)
	dir.SetLogger(log.With("component", "btdir"))

	mgr := audio.New(dir, store)
	mgr.SetLogger(log.With("component", "audio"))

	engine := btpolicy.New(loop, dir, mgr, mgr, btpolicy.Config{
		ConnWatchPeriod:     cfg.ConnWatchPeriod(),
		ConnWatchMaxRetries: cfg.Policy.ConnWatchMaxRetries,
		ProfileSwitchDelay:  cfg.ProfileSwitchDelay(),
	})
	engine.SetLogger(log.With("component", "btpolicy"))

	dir.BindPolicy(engine)
	dir.BindAudio(mgr)
	dir.BindNodes(mgr)

	// Telemetry is optional; the engine runs identically without it.
	if cfg.Telemetry.Enabled {
		client, connErr := telemetry.Connect(telemetry.ClientConfig{
			BrokerURL: cfg.Telemetry.Broker,
			ClientID:  cfg.Telemetry.ClientID,
			Username:  cfg.Telemetry.Username,
			Password:  cfg.Telemetry.Password,
			QoS:       byte(cfg.Telemetry.QoS),
		})
		if connErr != nil {
			return fmt.Errorf("connecting to broker: %w", connErr)
		}
		client.SetLogger(log.With("component", "telemetry"))
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error("closing telemetry client", "error", closeErr)
			}
		}()
		log.Info("telemetry connected", "broker", cfg.Telemetry.Broker)

		var metrics *telemetry.Metrics
		if cfg.Metrics.Enabled {
			metrics, connErr = telemetry.ConnectMetrics(telemetry.MetricsConfig{
				URL:           cfg.Metrics.URL,
				Token:         cfg.Metrics.Token,
				Org:           cfg.Metrics.Org,
				Bucket:        cfg.Metrics.Bucket,
				BatchSize:     cfg.Metrics.BatchSize,
				FlushInterval: cfg.MetricsFlushInterval(),
			})
			if connErr != nil {
				return fmt.Errorf("connecting to metrics store: %w", connErr)
			}
			metrics.SetLogger(log.With("component", "metrics"))
			defer func() {
				if closeErr := metrics.Close(); closeErr != nil {
					log.Error("closing metrics client", "error", closeErr)
				}
			}()
			log.Info("metrics connected", "url", cfg.Metrics.URL)
		}

		var recorder telemetry.Recorder
		if metrics != nil {
			recorder = metrics
		}
		reporter := telemetry.NewReporter(client, recorder)
		reporter.SetLogger(log.With("component", "telemetry"))
		engine.SetSink(reporter)

		control := telemetry.NewControl(engine)
		control.SetLogger(log.With("component", "control"))
		if attachErr := control.Attach(client); attachErr != nil {
			return fmt.Errorf("attaching control channel: %w", attachErr)
		}
	}

	if err := engine.Register(); err != nil {
		return fmt.Errorf("registering policy engine: %w", err)
	}
	if err := dir.Register(); err != nil {
		return fmt.Errorf("registering device directory: %w", err)
	}

	log.Info("btaudiod running")
	return loop.Run(ctx)
}

// loadConfig resolves the config source: BTAUDIOD_CONFIG or the first
// argument names a file; otherwise built-in defaults apply.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("BTAUDIOD_CONFIG")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}
