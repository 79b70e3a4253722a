package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	metricsConnectTimeout = 10 * time.Second
	metricsPingTimeout    = 5 * time.Second
)

// MetricsConfig holds the InfluxDB connection settings.
type MetricsConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	BatchSize     int
	FlushInterval time.Duration
}

// Metrics writes policy events into InfluxDB through the non-blocking
// batched write API.
type Metrics struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger
}

// ConnectMetrics creates the InfluxDB client and verifies connectivity.
func ConnectMetrics(cfg MetricsConfig) (*Metrics, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 10 * time.Second
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flush.Milliseconds())),
	)

	ctx, cancel := context.WithTimeout(context.Background(), metricsConnectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: influxdb not healthy", ErrConnectionFailed)
	}

	m := &Metrics{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   noopLogger{},
	}
	go m.drainWriteErrors(m.writeAPI.Errors())
	return m, nil
}

// SetLogger sets the logger for the metrics writer.
func (m *Metrics) SetLogger(logger Logger) {
	m.logger = logger
}

func (m *Metrics) drainWriteErrors(errs <-chan error) {
	for err := range errs {
		m.logger.Warn("metrics write failed", "error", err)
	}
}

// Event implements Recorder. One counter point per policy transition.
func (m *Metrics) Event(event, device, reason string) {
	tags := map[string]string{"event": event, "device": device}
	if reason != "" {
		tags["reason"] = reason
	}
	m.writeAPI.WritePoint(influxdb2.NewPoint(
		"bt_policy_event", tags, map[string]any{"count": 1}, time.Now(),
	))
}

// WatchRetries implements Recorder. Records how many polls a connection
// watch needed before resolving.
func (m *Metrics) WatchRetries(device string, retries int) {
	m.writeAPI.WritePoint(influxdb2.NewPoint(
		"bt_conn_watch_retries",
		map[string]string{"device": device},
		map[string]any{"retries": retries},
		time.Now(),
	))
}

// HealthCheck verifies the InfluxDB connection is alive.
func (m *Metrics) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, metricsPingTimeout)
	defer cancel()
	healthy, err := m.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("metrics health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("metrics health check: %w", ErrNotConnected)
	}
	return nil
}

// Close flushes pending points and shuts the client down.
func (m *Metrics) Close() error {
	if m.client == nil {
		return nil
	}
	m.writeAPI.Flush()
	m.client.Close()
	return nil
}
