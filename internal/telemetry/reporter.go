package telemetry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dean840513/adhd/internal/btpolicy"
)

// Publisher is the outbound transport the reporter writes events to.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Recorder receives metric points alongside the event stream. Implemented
// by Metrics; nil-safe via the reporter's checks.
type Recorder interface {
	Event(event, device, reason string)
	WatchRetries(device string, retries int)
}

// Event is the JSON document published for every policy transition.
type Event struct {
	ID     string `json:"id"`
	Time   string `json:"time"`
	Event  string `json:"event"`
	Device string `json:"device"`

	Reason  string `json:"reason,omitempty"`
	Retries int    `json:"retries,omitempty"`
}

// Reporter implements btpolicy.Sink over MQTT and InfluxDB. All methods
// are fire-and-forget; a dead broker costs events, not policy decisions.
type Reporter struct {
	pub     Publisher
	metrics Recorder
	logger  Logger
}

// NewReporter creates a reporter. metrics may be nil.
func NewReporter(pub Publisher, metrics Recorder) *Reporter {
	return &Reporter{pub: pub, metrics: metrics, logger: noopLogger{}}
}

// SetLogger sets the logger for the reporter.
func (r *Reporter) SetLogger(logger Logger) {
	r.logger = logger
}

// SuspendScheduled implements btpolicy.Sink.
func (r *Reporter) SuspendScheduled(dev btpolicy.DeviceID, reason btpolicy.SuspendReason) {
	r.emit(TopicSuspendEvents, Event{Event: "suspend_scheduled", Device: string(dev), Reason: reason.String()})
}

// SuspendFired implements btpolicy.Sink.
func (r *Reporter) SuspendFired(dev btpolicy.DeviceID, reason btpolicy.SuspendReason) {
	r.emit(TopicSuspendEvents, Event{Event: "suspend_fired", Device: string(dev), Reason: reason.String()})
}

// SuspendCanceled implements btpolicy.Sink.
func (r *Reporter) SuspendCanceled(dev btpolicy.DeviceID) {
	r.emit(TopicSuspendEvents, Event{Event: "suspend_canceled", Device: string(dev)})
}

// WatchStarted implements btpolicy.Sink.
func (r *Reporter) WatchStarted(dev btpolicy.DeviceID) {
	r.emit(TopicWatchEvents, Event{Event: "watch_started", Device: string(dev)})
}

// WatchResolved implements btpolicy.Sink.
func (r *Reporter) WatchResolved(dev btpolicy.DeviceID, retriesUsed int) {
	r.emit(TopicWatchEvents, Event{Event: "watch_resolved", Device: string(dev), Retries: retriesUsed})
	if r.metrics != nil {
		r.metrics.WatchRetries(string(dev), retriesUsed)
	}
}

// WatchTimedOut implements btpolicy.Sink.
func (r *Reporter) WatchTimedOut(dev btpolicy.DeviceID) {
	r.emit(TopicWatchEvents, Event{Event: "watch_timed_out", Device: string(dev)})
}

// ProfileSwitched implements btpolicy.Sink.
func (r *Reporter) ProfileSwitched(dev btpolicy.DeviceID) {
	r.emit(TopicSwitchEvents, Event{Event: "profile_switched", Device: string(dev)})
}

func (r *Reporter) emit(topic string, ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("encoding telemetry event", "event", ev.Event, "error", err)
		return
	}
	if err := r.pub.Publish(topic, payload); err != nil {
		r.logger.Warn("telemetry event dropped", "topic", topic, "event", ev.Event, "error", err)
	}
	if r.metrics != nil {
		r.metrics.Event(ev.Event, ev.Device, ev.Reason)
	}
}
