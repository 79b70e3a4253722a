package bluez

import (
	"fmt"
	"strings"
	"sync"

	dbus "github.com/godbus/dbus/v5"

	"github.com/dean840513/adhd/internal/eventloop"
)

// EventKind is the monitor's message class on the event loop.
const EventKind eventloop.Kind = "bluez_device"

// EventType classifies a DeviceEvent.
type EventType int

const (
	// DeviceAdded reports a device object appearing on the bus.
	DeviceAdded EventType = iota

	// DeviceUpdated reports a Device1 property change.
	DeviceUpdated

	// DeviceRemoved reports a device object leaving the bus.
	DeviceRemoved

	// ProfileAttached reports a media transport appearing under a device,
	// i.e. an audio profile connection going live.
	ProfileAttached

	// ProfileDetached reports a media transport leaving the bus.
	ProfileDetached
)

// DeviceEvent is a device lifecycle notification posted onto the control
// loop. Optional fields are pointers so an update carries only what changed.
type DeviceEvent struct {
	Type    EventType
	Path    string // BlueZ Device1 object path; the stable device identity
	Address string // Bluetooth address, when known

	UUIDs     []string // advertised service UUIDs, when present
	Connected *bool    // device-level Connected property, when it changed

	// TransportUUID is the profile UUID of an attached media transport.
	// Empty for detach events; BlueZ only names the removed interface.
	TransportUUID string
}

// Kind implements eventloop.Message.
func (DeviceEvent) Kind() eventloop.Kind { return EventKind }

// Logger defines the logging interface used by the monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Monitor owns the system bus connection and the signal pump.
type Monitor struct {
	conn *dbus.Conn
	loop *eventloop.Loop

	sigCh  chan *dbus.Signal
	done   chan struct{}
	logger Logger

	mu     sync.Mutex
	closed bool
}

// signalBuffer sizes the D-Bus signal channel; BlueZ bursts property
// changes during discovery.
const signalBuffer = 64

// Connect opens the system bus, subscribes to BlueZ object and property
// signals, snapshots already-known devices, and starts the signal pump.
func Connect(loop *eventloop.Loop) (*Monitor, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusUnavailable, err)
	}

	m := &Monitor{
		conn:   conn,
		loop:   loop,
		sigCh:  make(chan *dbus.Signal, signalBuffer),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}

	matches := [][]dbus.MatchOption{
		{dbus.WithMatchInterface(objManagerIface), dbus.WithMatchMember("InterfacesAdded")},
		{dbus.WithMatchInterface(objManagerIface), dbus.WithMatchMember("InterfacesRemoved")},
		{dbus.WithMatchInterface(propsIface), dbus.WithMatchMember("PropertiesChanged")},
	}
	for _, opts := range matches {
		if err := conn.AddMatchSignal(opts...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bluez: AddMatchSignal: %w", err)
		}
	}

	conn.Signal(m.sigCh)

	if err := m.snapshot(); err != nil {
		conn.RemoveSignal(m.sigCh)
		conn.Close()
		return nil, err
	}

	go m.pump()
	return m, nil
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// Close stops the signal pump and releases the bus connection. Idempotent.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.conn.RemoveSignal(m.sigCh)
	return m.conn.Close()
}

// ConnectProfile asks BlueZ to bring up the given profile on the device.
func (m *Monitor) ConnectProfile(path, uuid string) error {
	if m.isClosed() {
		return ErrClosed
	}
	obj := m.conn.Object(busName, dbus.ObjectPath(path))
	if call := obj.Call(deviceIface+".ConnectProfile", 0, uuid); call.Err != nil {
		return fmt.Errorf("bluez: ConnectProfile %s: %w", uuid, call.Err)
	}
	return nil
}

// Disconnect drops every connection to the device.
func (m *Monitor) Disconnect(path string) error {
	if m.isClosed() {
		return ErrClosed
	}
	obj := m.conn.Object(busName, dbus.ObjectPath(path))
	if call := obj.Call(deviceIface+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("bluez: Disconnect: %w", call.Err)
	}
	return nil
}

func (m *Monitor) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// snapshot posts DeviceAdded events for every Device1 object already on the bus.
func (m *Monitor) snapshot() error {
	obj := m.conn.Object(busName, dbus.ObjectPath(bluezRootPath))
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if call := obj.Call(objManagerIface+".GetManagedObjects", 0); call.Err != nil {
		return fmt.Errorf("bluez: GetManagedObjects: %w", call.Err)
	} else if err := call.Store(&objs); err != nil {
		return fmt.Errorf("bluez: decode GetManagedObjects: %w", err)
	}

	for path, ifaces := range objs {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		m.post(deviceEventFromProps(DeviceAdded, path, props))
	}
	return nil
}

// pump translates raw D-Bus signals into DeviceEvents until Close.
func (m *Monitor) pump() {
	for {
		select {
		case <-m.done:
			return
		case sig, ok := <-m.sigCh:
			if !ok {
				return
			}
			if ev, ok := m.translate(sig); ok {
				m.post(ev)
			}
		}
	}
}

// translate maps one signal to a DeviceEvent, if it concerns a Device1 object.
func (m *Monitor) translate(sig *dbus.Signal) (DeviceEvent, bool) {
	switch sig.Name {
	case objManagerIface + ".InterfacesAdded":
		if len(sig.Body) < 2 {
			return DeviceEvent{}, false
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		if props, ok := ifaces[deviceIface]; ok {
			return deviceEventFromProps(DeviceAdded, path, props), true
		}
		if props, ok := ifaces[mediaIface]; ok {
			ev := DeviceEvent{Type: ProfileAttached, Path: transportParent(path)}
			if v, ok := props["UUID"]; ok {
				ev.TransportUUID, _ = v.Value().(string)
			}
			return ev, true
		}
		return DeviceEvent{}, false

	case objManagerIface + ".InterfacesRemoved":
		if len(sig.Body) < 2 {
			return DeviceEvent{}, false
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].([]string)
		for _, iface := range ifaces {
			switch iface {
			case deviceIface:
				return DeviceEvent{Type: DeviceRemoved, Path: string(path)}, true
			case mediaIface:
				return DeviceEvent{Type: ProfileDetached, Path: transportParent(path)}, true
			}
		}
		return DeviceEvent{}, false

	case propsIface + ".PropertiesChanged":
		if len(sig.Body) < 2 {
			return DeviceEvent{}, false
		}
		iface, _ := sig.Body[0].(string)
		if iface != deviceIface {
			return DeviceEvent{}, false
		}
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		ev := deviceEventFromProps(DeviceUpdated, sig.Path, changed)
		if ev.UUIDs == nil && ev.Connected == nil && ev.Address == "" {
			return DeviceEvent{}, false
		}
		return ev, true
	}
	return DeviceEvent{}, false
}

// post hands an event to the control loop. A full queue drops the event;
// the periodic connection watch re-reads state, so a dropped update is
// recoverable.
func (m *Monitor) post(ev DeviceEvent) {
	if err := m.loop.Send(ev); err != nil {
		m.logger.Warn("device event dropped", "path", ev.Path, "error", err)
	}
}

// deviceEventFromProps extracts the fields the directory consumes.
func deviceEventFromProps(t EventType, path dbus.ObjectPath, props map[string]dbus.Variant) DeviceEvent {
	ev := DeviceEvent{Type: t, Path: string(path)}
	if v, ok := props["Address"]; ok {
		ev.Address, _ = v.Value().(string)
	}
	if ev.Address == "" {
		ev.Address = addressFromPath(path)
	}
	if v, ok := props["UUIDs"]; ok {
		ev.UUIDs, _ = v.Value().([]string)
	}
	if v, ok := props["Connected"]; ok {
		if b, ok := v.Value().(bool); ok {
			ev.Connected = &b
		}
	}
	return ev
}

// addressFromPath recovers the Bluetooth address from a BlueZ object path
// of the form .../dev_XX_XX_XX_XX_XX_XX.
func addressFromPath(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	addr := s[idx+len("/dev_"):]
	if cut := strings.IndexByte(addr, '/'); cut >= 0 {
		addr = addr[:cut]
	}
	return strings.ReplaceAll(addr, "_", ":")
}

// transportParent strips the transport segment from a MediaTransport1 path
// (.../dev_XX_.../fdN), yielding the owning Device1 path.
func transportParent(p dbus.ObjectPath) string {
	s := string(p)
	idx := strings.LastIndex(s, "/")
	if idx < 0 || !strings.Contains(s, "/dev_") {
		return s
	}
	return s[:idx]
}
