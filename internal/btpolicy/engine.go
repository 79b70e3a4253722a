package btpolicy

import (
	"time"

	"github.com/dean840513/adhd/internal/eventloop"
)

// MessageKind is the engine's message class on the event loop.
const MessageKind eventloop.Kind = "bt_policy"

// DeviceAccessor exposes per-device Bluetooth state and connection control.
// Implemented by the device directory; called on the loop goroutine only.
type DeviceAccessor interface {
	// HasAudioProfiles reports whether the device advertises any audio
	// profile at all.
	HasAudioProfiles(dev DeviceID) bool

	// SupportsProfile reports whether the device advertises the profile.
	SupportsProfile(dev DeviceID, p Profile) bool

	// ProfileConnected reports whether the profile connection is live.
	ProfileConnected(dev DeviceID, p Profile) bool

	// ConnectProfile asks the transport to bring up the profile.
	ConnectProfile(dev DeviceID, p Profile) error

	// Disconnect forcibly drops the device at the transport level.
	Disconnect(dev DeviceID) error

	// RemoveConflicting disconnects every other connected audio device,
	// keeping dev as the single exposed Bluetooth audio device.
	RemoveConflicting(dev DeviceID)

	// SetNodesPlugged marks the device's audio nodes user-selectable.
	SetNodesPlugged(dev DeviceID, plugged bool)

	// IODev returns the iodev attached to the device for a direction.
	IODev(dev DeviceID, dir Direction) (IODevID, bool)
}

// IODevLifecycle controls serving state of individual iodevs.
type IODevLifecycle interface {
	// Suspend removes the iodev from active serving.
	Suspend(idx IODevID)

	// Resume returns the iodev to active serving.
	Resume(idx IODevID)

	// UpdateActiveNode re-selects the active node of the iodev.
	UpdateActiveNode(idx IODevID, node uint32, enabled bool)
}

// AudioPaths starts and suspends the per-device audio paths. Suspend calls
// are no-ops when the corresponding path is not up for the device.
type AudioPaths interface {
	StartA2DP(dev DeviceID)
	SuspendA2DP(dev DeviceID)
	StartHFPAudioGateway(dev DeviceID) error
	SuspendHFPAudioGateway(dev DeviceID)
}

// Sink receives best-effort policy telemetry. Implementations must not
// block; failures are their own concern and never propagate to the engine.
type Sink interface {
	SuspendScheduled(dev DeviceID, reason SuspendReason)
	SuspendFired(dev DeviceID, reason SuspendReason)
	SuspendCanceled(dev DeviceID)
	WatchStarted(dev DeviceID)
	WatchResolved(dev DeviceID, retriesUsed int)
	WatchTimedOut(dev DeviceID)
	ProfileSwitched(dev DeviceID)
}

// noopSink is a sink that does nothing.
type noopSink struct{}

func (noopSink) SuspendScheduled(DeviceID, SuspendReason) {}
func (noopSink) SuspendFired(DeviceID, SuspendReason)     {}
func (noopSink) SuspendCanceled(DeviceID)                 {}
func (noopSink) WatchStarted(DeviceID)                    {}
func (noopSink) WatchResolved(DeviceID, int)              {}
func (noopSink) WatchTimedOut(DeviceID)                   {}
func (noopSink) ProfileSwitched(DeviceID)                 {}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine is the Bluetooth audio policy engine.
//
// All record collections are owned by the loop goroutine; see the package
// documentation for the threading contract.
type Engine struct {
	loop   *eventloop.Loop
	bt     DeviceAccessor
	iodevs IODevLifecycle
	audio  AudioPaths
	sink   Sink
	logger Logger
	cfg    Config

	suspends map[DeviceID]*suspendRecord
	watches  map[DeviceID]*watchRecord
	switches map[DeviceID]*switchRecord
}

// suspendRecord is the pending suspend for one device.
// At most one exists per device; the earliest reason wins.
type suspendRecord struct {
	dev    DeviceID
	reason SuspendReason
	timer  *eventloop.Timer
}

// watchRecord is the pending connection watch for one device.
type watchRecord struct {
	dev         DeviceID
	retriesLeft int
	timer       *eventloop.Timer
}

// switchRecord is the pending debounced output resume for one device.
type switchRecord struct {
	dev   DeviceID
	timer *eventloop.Timer
}

// New creates a policy engine bound to the given event loop and
// collaborators. Call Register before driving the loop.
func New(loop *eventloop.Loop, bt DeviceAccessor, iodevs IODevLifecycle, audio AudioPaths, cfg Config) *Engine {
	return &Engine{
		loop:     loop,
		bt:       bt,
		iodevs:   iodevs,
		audio:    audio,
		sink:     noopSink{},
		logger:   noopLogger{},
		cfg:      cfg.withDefaults(),
		suspends: make(map[DeviceID]*suspendRecord),
		watches:  make(map[DeviceID]*watchRecord),
		switches: make(map[DeviceID]*switchRecord),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetSink sets the telemetry sink for the engine.
func (e *Engine) SetSink(sink Sink) {
	e.sink = sink
}

// Register installs the engine's command handler on the event loop.
func (e *Engine) Register() error {
	return e.loop.Register(MessageKind, e.handle)
}

// Unregister removes the engine's command handler.
func (e *Engine) Unregister() {
	e.loop.Unregister(MessageKind)
}

// switchProfileMsg asks for a directional suspend/resume cycle after the
// device's active profile changed. trigger is the iodev whose open or
// profile change initiated the switch.
type switchProfileMsg struct {
	dev     DeviceID
	trigger IODevID
}

func (switchProfileMsg) Kind() eventloop.Kind { return MessageKind }

// scheduleSuspendMsg asks for a delayed device suspend.
type scheduleSuspendMsg struct {
	dev    DeviceID
	delay  time.Duration
	reason SuspendReason
}

func (scheduleSuspendMsg) Kind() eventloop.Kind { return MessageKind }

// cancelSuspendMsg withdraws a pending suspend, if any.
type cancelSuspendMsg struct {
	dev DeviceID
}

func (cancelSuspendMsg) Kind() eventloop.Kind { return MessageKind }

// handle is the command processor. It runs on the loop goroutine and
// dispatches each command variant to its scheduler.
func (e *Engine) handle(m eventloop.Message) {
	switch msg := m.(type) {
	case switchProfileMsg:
		e.switchProfile(msg.dev, msg.trigger)
	case scheduleSuspendMsg:
		e.scheduleSuspend(msg.dev, msg.delay, msg.reason)
	case cancelSuspendMsg:
		e.cancelSuspend(msg.dev)
	default:
		e.logger.Warn("unknown policy command", "type", m)
	}
}

// SwitchProfile requests a profile switch cycle for the device. Safe from
// any goroutine; returns the enqueue result only.
func (e *Engine) SwitchProfile(dev DeviceID, trigger IODevID) error {
	return e.loop.Send(switchProfileMsg{dev: dev, trigger: trigger})
}

// ScheduleSuspend requests a device suspend after delay. If a suspend is
// already pending for the device the request is ignored on delivery. Safe
// from any goroutine; returns the enqueue result only.
func (e *Engine) ScheduleSuspend(dev DeviceID, delay time.Duration, reason SuspendReason) error {
	return e.loop.Send(scheduleSuspendMsg{dev: dev, delay: delay, reason: reason})
}

// CancelSuspend withdraws a pending suspend for the device. Canceling when
// none is pending is a no-op on delivery. Safe from any goroutine; returns
// the enqueue result only.
func (e *Engine) CancelSuspend(dev DeviceID) error {
	return e.loop.Send(cancelSuspendMsg{dev: dev})
}

// RemoveDevice tears down every policy record for the device: the pending
// output-switch timer, the pending suspend and the connection watch. After
// it returns no timer callback can observe the device.
//
// Loop goroutine only. The device's owner may reclaim its backing storage
// once this returns.
func (e *Engine) RemoveDevice(dev DeviceID) {
	if rec, ok := e.switches[dev]; ok {
		e.loop.CancelTimer(rec.timer)
		delete(e.switches, dev)
	}
	e.cancelSuspend(dev)
	e.StopConnectionWatch(dev)
}
