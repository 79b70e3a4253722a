package btdir

import (
	"time"

	"github.com/dean840513/adhd/internal/bluez"
	"github.com/dean840513/adhd/internal/btpolicy"
	"github.com/dean840513/adhd/internal/eventloop"
)

// Transport is the slice of the Bluetooth stack the directory drives:
// profile bring-up and device disconnect, both addressed by object path.
type Transport interface {
	ConnectProfile(path, uuid string) error
	Disconnect(path string) error
}

// Policy is the slice of the policy engine the directory calls into.
// StartConnectionWatch, StopConnectionWatch and RemoveDevice are loop
// goroutine calls; ScheduleSuspend enqueues and may reject on a full queue.
type Policy interface {
	StartConnectionWatch(dev btpolicy.DeviceID)
	StopConnectionWatch(dev btpolicy.DeviceID)
	RemoveDevice(dev btpolicy.DeviceID)
	ScheduleSuspend(dev btpolicy.DeviceID, delay time.Duration, reason btpolicy.SuspendReason) error
}

// NodeControl toggles user visibility of iodev nodes.
type NodeControl interface {
	SetPlugged(idx btpolicy.IODevID, plugged bool)
}

// Logger defines the logging interface used by the directory.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// device is one directory record. The DeviceID is the BlueZ object path.
type device struct {
	id      btpolicy.DeviceID
	address string

	// linked is the device-level connection state.
	linked bool

	supported map[btpolicy.Profile]bool
	connected map[btpolicy.Profile]bool
	iodevs    map[btpolicy.Direction]btpolicy.IODevID
	plugged   bool
}

// inUse reports whether any iodev is attached to the device.
func (d *device) inUse() bool { return len(d.iodevs) > 0 }

// Directory is the Bluetooth device registry.
type Directory struct {
	loop      *eventloop.Loop
	transport Transport
	logger    Logger

	// policy, audio and nodes are bound after construction; the engine
	// and the audio manager both need the directory first.
	policy Policy
	audio  btpolicy.AudioPaths
	nodes  NodeControl

	devices map[btpolicy.DeviceID]*device
}

// New creates a directory bound to the given loop and transport. Call
// BindPolicy, BindAudio and BindNodes before Register.
func New(loop *eventloop.Loop, transport Transport) *Directory {
	return &Directory{
		loop:      loop,
		transport: transport,
		logger:    noopLogger{},
		devices:   make(map[btpolicy.DeviceID]*device),
	}
}

// SetLogger sets the logger for the directory.
func (d *Directory) SetLogger(logger Logger) {
	d.logger = logger
}

// BindPolicy attaches the policy engine the directory reports into.
func (d *Directory) BindPolicy(p Policy) {
	d.policy = p
}

// BindAudio attaches the audio path manager used during device teardown.
func (d *Directory) BindAudio(a btpolicy.AudioPaths) {
	d.audio = a
}

// BindNodes attaches the node control used to plug and unplug iodev nodes.
func (d *Directory) BindNodes(n NodeControl) {
	d.nodes = n
}

// Register installs the directory's event handler on the control loop.
func (d *Directory) Register() error {
	return d.loop.Register(bluez.EventKind, d.handleEvent)
}

// Unregister removes the directory's event handler.
func (d *Directory) Unregister() {
	d.loop.Unregister(bluez.EventKind)
}

// handleEvent folds one bluez event into the directory. Loop goroutine only.
func (d *Directory) handleEvent(m eventloop.Message) {
	ev, ok := m.(bluez.DeviceEvent)
	if !ok {
		d.logger.Warn("unexpected message on device event kind", "type", m)
		return
	}
	id := btpolicy.DeviceID(ev.Path)

	switch ev.Type {
	case bluez.DeviceAdded, bluez.DeviceUpdated:
		d.upsert(id, ev)
	case bluez.DeviceRemoved:
		d.removeDevice(id)
	case bluez.ProfileAttached:
		d.MarkProfileConnected(id, profileFromUUID(ev.TransportUUID), true)
	case bluez.ProfileDetached:
		d.MarkProfileConnected(id, btpolicy.ProfileA2DP, false)
	default:
		d.logger.Warn("unknown device event type", "type", ev.Type, "path", ev.Path)
	}
}

// upsert creates or updates the record for a device event.
func (d *Directory) upsert(id btpolicy.DeviceID, ev bluez.DeviceEvent) {
	rec := d.ensure(id)
	if ev.Address != "" {
		rec.address = ev.Address
	}
	if ev.UUIDs != nil {
		rec.supported[btpolicy.ProfileA2DP] = containsUUID(ev.UUIDs, bluez.UUIDA2DPSink)
		rec.supported[btpolicy.ProfileHFP] = containsUUID(ev.UUIDs, bluez.UUIDHFPHandsFree)
	}
	if ev.Connected == nil {
		return
	}

	was := rec.linked
	rec.linked = *ev.Connected
	switch {
	case rec.linked && !was:
		d.logger.Info("device connected", "device", id, "address", rec.address)
		if d.policy != nil && d.hasAudioProfiles(rec) {
			d.policy.StartConnectionWatch(id)
		}
	case !rec.linked && was:
		d.logger.Info("device disconnected", "device", id, "address", rec.address)
		d.linkDropped(rec)
	}
}

// linkDropped clears profile state after the device-level link went down.
// A device still serving audio gets an immediate unexpected-drop suspend.
func (d *Directory) linkDropped(rec *device) {
	clear(rec.connected)
	if rec.inUse() && d.policy != nil {
		if err := d.policy.ScheduleSuspend(rec.id, 0, btpolicy.ReasonUnexpectedProfileDrop); err != nil {
			d.logger.Warn("suspend request rejected", "device", rec.id, "error", err)
		}
	}
}

// MarkProfileConnected records a profile connection state change and drives
// the policy engine accordingly: a connect (re)starts the connection watch,
// a disconnect while the device serves audio escalates to suspend.
//
// Loop goroutine only. In-process profile drivers report through here; bus
// transport lifecycle arrives via events.
func (d *Directory) MarkProfileConnected(id btpolicy.DeviceID, p btpolicy.Profile, connected bool) {
	rec := d.ensure(id)
	if rec.connected[p] == connected {
		return
	}
	rec.connected[p] = connected
	d.logger.Debug("profile state changed", "device", id, "profile", p, "connected", connected)

	if d.policy == nil {
		return
	}
	if connected {
		rec.supported[p] = true
		d.policy.StartConnectionWatch(id)
		return
	}
	if rec.inUse() {
		if err := d.policy.ScheduleSuspend(id, 0, btpolicy.ReasonUnexpectedProfileDrop); err != nil {
			d.logger.Warn("suspend request rejected", "device", id, "error", err)
		}
	}
}

// removeDevice tears the device out of the directory: audio paths down,
// policy records gone, then the record itself.
func (d *Directory) removeDevice(id btpolicy.DeviceID) {
	rec, ok := d.devices[id]
	if !ok {
		return
	}
	d.logger.Info("device removed", "device", id, "address", rec.address)

	if d.audio != nil {
		d.audio.SuspendA2DP(id)
		d.audio.SuspendHFPAudioGateway(id)
	}
	if d.policy != nil {
		d.policy.RemoveDevice(id)
	}
	delete(d.devices, id)
}

// ensure returns the record for id, creating it on first sight.
func (d *Directory) ensure(id btpolicy.DeviceID) *device {
	rec, ok := d.devices[id]
	if !ok {
		rec = &device{
			id:        id,
			supported: make(map[btpolicy.Profile]bool),
			connected: make(map[btpolicy.Profile]bool),
			iodevs:    make(map[btpolicy.Direction]btpolicy.IODevID),
		}
		d.devices[id] = rec
	}
	return rec
}

// HasAudioProfiles implements btpolicy.DeviceAccessor.
func (d *Directory) HasAudioProfiles(dev btpolicy.DeviceID) bool {
	rec, ok := d.devices[dev]
	return ok && d.hasAudioProfiles(rec)
}

func (d *Directory) hasAudioProfiles(rec *device) bool {
	return rec.supported[btpolicy.ProfileA2DP] || rec.supported[btpolicy.ProfileHFP]
}

// SupportsProfile implements btpolicy.DeviceAccessor.
func (d *Directory) SupportsProfile(dev btpolicy.DeviceID, p btpolicy.Profile) bool {
	rec, ok := d.devices[dev]
	return ok && rec.supported[p]
}

// ProfileConnected implements btpolicy.DeviceAccessor.
func (d *Directory) ProfileConnected(dev btpolicy.DeviceID, p btpolicy.Profile) bool {
	rec, ok := d.devices[dev]
	return ok && rec.connected[p]
}

// ConnectProfile implements btpolicy.DeviceAccessor. The remote role UUID
// is derived from the profile family: the peripheral side of A2DP is the
// sink, of HFP the handsfree unit.
func (d *Directory) ConnectProfile(dev btpolicy.DeviceID, p btpolicy.Profile) error {
	uuid := bluez.UUIDA2DPSink
	if p == btpolicy.ProfileHFP {
		uuid = bluez.UUIDHFPHandsFree
	}
	return d.transport.ConnectProfile(string(dev), uuid)
}

// Disconnect implements btpolicy.DeviceAccessor.
func (d *Directory) Disconnect(dev btpolicy.DeviceID) error {
	return d.transport.Disconnect(string(dev))
}

// RemoveConflicting implements btpolicy.DeviceAccessor. Every other device
// with a live audio profile is dropped so only one Bluetooth audio device
// is exposed at a time.
func (d *Directory) RemoveConflicting(dev btpolicy.DeviceID) {
	for id, rec := range d.devices {
		if id == dev || !anyConnected(rec) {
			continue
		}
		d.logger.Info("dropping conflicting audio device", "device", id, "kept", dev)
		if d.policy != nil {
			d.policy.StopConnectionWatch(id)
		}
		if err := d.transport.Disconnect(string(id)); err != nil {
			d.logger.Warn("conflicting device disconnect failed", "device", id, "error", err)
		}
		clear(rec.connected)
	}
}

func anyConnected(rec *device) bool {
	return rec.connected[btpolicy.ProfileA2DP] || rec.connected[btpolicy.ProfileHFP]
}

// SetNodesPlugged implements btpolicy.DeviceAccessor.
func (d *Directory) SetNodesPlugged(dev btpolicy.DeviceID, plugged bool) {
	rec, ok := d.devices[dev]
	if !ok {
		return
	}
	rec.plugged = plugged
	if d.nodes == nil {
		return
	}
	for _, idx := range rec.iodevs {
		d.nodes.SetPlugged(idx, plugged)
	}
}

// IODev implements btpolicy.DeviceAccessor.
func (d *Directory) IODev(dev btpolicy.DeviceID, dir btpolicy.Direction) (btpolicy.IODevID, bool) {
	rec, ok := d.devices[dev]
	if !ok {
		return 0, false
	}
	idx, ok := rec.iodevs[dir]
	return idx, ok
}

// AttachIODev records idx as the device's iodev for the direction. A newly
// attached iodev inherits the device's current plugged state.
//
// Loop goroutine only.
func (d *Directory) AttachIODev(dev btpolicy.DeviceID, dir btpolicy.Direction, idx btpolicy.IODevID) {
	rec := d.ensure(dev)
	rec.iodevs[dir] = idx
	if rec.plugged && d.nodes != nil {
		d.nodes.SetPlugged(idx, true)
	}
	d.logger.Debug("iodev attached", "device", dev, "direction", dir, "iodev", idx)
}

// DetachIODev forgets the device's iodev for the direction.
//
// Loop goroutine only.
func (d *Directory) DetachIODev(dev btpolicy.DeviceID, dir btpolicy.Direction) {
	rec, ok := d.devices[dev]
	if !ok {
		return
	}
	delete(rec.iodevs, dir)
	d.logger.Debug("iodev detached", "device", dev, "direction", dir)
}

// Address returns the Bluetooth address of the device, when known.
func (d *Directory) Address(dev btpolicy.DeviceID) (string, bool) {
	rec, ok := d.devices[dev]
	if !ok || rec.address == "" {
		return "", false
	}
	return rec.address, true
}

// profileFromUUID maps a transport UUID onto a profile family. Media
// transports default to A2DP; SCO links never surface as transports.
func profileFromUUID(uuid string) btpolicy.Profile {
	switch uuid {
	case bluez.UUIDHFPHandsFree, bluez.UUIDHFPAudioGateway:
		return btpolicy.ProfileHFP
	default:
		return btpolicy.ProfileA2DP
	}
}

func containsUUID(uuids []string, want string) bool {
	for _, u := range uuids {
		if u == want {
			return true
		}
	}
	return false
}
