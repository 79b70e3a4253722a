package audio

import (
	"fmt"

	"github.com/dean840513/adhd/internal/btpolicy"
)

// Binder is the slice of the device directory the manager reports iodev
// lifecycle into.
type Binder interface {
	AttachIODev(dev btpolicy.DeviceID, dir btpolicy.Direction, idx btpolicy.IODevID)
	DetachIODev(dev btpolicy.DeviceID, dir btpolicy.Direction)
	Address(dev btpolicy.DeviceID) (string, bool)
}

// Blocklist answers whether an address is barred from HFP audio gateway use.
type Blocklist interface {
	Contains(address string) (bool, error)
}

// Logger defines the logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// iodev is one playback or capture stream endpoint. A device carries at
// most one per direction; A2DP and HFP share them.
type iodev struct {
	idx btpolicy.IODevID
	dev btpolicy.DeviceID
	dir btpolicy.Direction

	activeNode uint32
	enabled    bool
	suspended  bool
	plugged    bool
}

// devicePaths tracks which audio paths are up for one device and the
// iodevs the device currently exposes.
type devicePaths struct {
	a2dp bool
	hfp  bool

	iodevs map[btpolicy.Direction]btpolicy.IODevID
}

// needs reports whether any up path serves the direction. A2DP is playback
// only; HFP is bidirectional.
func (p *devicePaths) needs(dir btpolicy.Direction) bool {
	if dir == btpolicy.DirectionInput {
		return p.hfp
	}
	return p.a2dp || p.hfp
}

// Manager creates, suspends and resumes Bluetooth iodevs.
type Manager struct {
	binder    Binder
	blocklist Blocklist
	logger    Logger

	iodevs  map[btpolicy.IODevID]*iodev
	paths   map[btpolicy.DeviceID]*devicePaths
	nextIdx btpolicy.IODevID
}

// New creates a manager. blocklist may be nil, in which case every device
// is allowed an audio gateway.
func New(binder Binder, blocklist Blocklist) *Manager {
	return &Manager{
		binder:    binder,
		blocklist: blocklist,
		logger:    noopLogger{},
		iodevs:    make(map[btpolicy.IODevID]*iodev),
		paths:     make(map[btpolicy.DeviceID]*devicePaths),
		nextIdx:   1,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// StartA2DP implements btpolicy.AudioPaths. Brings up the A2DP playback
// path for the device. A no-op when the path is already up.
func (m *Manager) StartA2DP(dev btpolicy.DeviceID) {
	p := m.ensure(dev)
	if p.a2dp {
		return
	}
	p.a2dp = true
	m.reconcile(dev, p)
	m.logger.Info("A2DP path started", "device", dev)
}

// SuspendA2DP implements btpolicy.AudioPaths. Tears the A2DP path down.
// A no-op when the path is not up.
func (m *Manager) SuspendA2DP(dev btpolicy.DeviceID) {
	p, ok := m.paths[dev]
	if !ok || !p.a2dp {
		return
	}
	p.a2dp = false
	m.reconcile(dev, p)
	m.logger.Info("A2DP path suspended", "device", dev)
}

// StartHFPAudioGateway implements btpolicy.AudioPaths. Brings up the HFP
// voice path for the device, unless the device is blocklisted. A no-op
// when the path is already up.
func (m *Manager) StartHFPAudioGateway(dev btpolicy.DeviceID) error {
	p := m.ensure(dev)
	if p.hfp {
		return nil
	}

	if blocked, err := m.blocked(dev); err != nil {
		// A broken blocklist store never takes voice audio down with it.
		m.logger.Warn("blocklist lookup failed", "device", dev, "error", err)
	} else if blocked {
		return fmt.Errorf("%w: %s", ErrBlocklisted, dev)
	}

	p.hfp = true
	m.reconcile(dev, p)
	m.logger.Info("HFP audio gateway started", "device", dev)
	return nil
}

// SuspendHFPAudioGateway implements btpolicy.AudioPaths. Tears the HFP
// path down. A no-op when the path is not up.
func (m *Manager) SuspendHFPAudioGateway(dev btpolicy.DeviceID) {
	p, ok := m.paths[dev]
	if !ok || !p.hfp {
		return
	}
	p.hfp = false
	m.reconcile(dev, p)
	m.logger.Info("HFP audio gateway suspended", "device", dev)
}

// Suspend implements btpolicy.IODevLifecycle. Removes the iodev from
// active serving without destroying it.
func (m *Manager) Suspend(idx btpolicy.IODevID) {
	io, ok := m.iodevs[idx]
	if !ok || io.suspended {
		return
	}
	io.suspended = true
	m.logger.Debug("iodev suspended", "iodev", idx, "device", io.dev, "direction", io.dir)
}

// Resume implements btpolicy.IODevLifecycle. Returns the iodev to active
// serving.
func (m *Manager) Resume(idx btpolicy.IODevID) {
	io, ok := m.iodevs[idx]
	if !ok || !io.suspended {
		return
	}
	io.suspended = false
	m.logger.Debug("iodev resumed", "iodev", idx, "device", io.dev, "direction", io.dir)
}

// UpdateActiveNode implements btpolicy.IODevLifecycle.
func (m *Manager) UpdateActiveNode(idx btpolicy.IODevID, node uint32, enabled bool) {
	io, ok := m.iodevs[idx]
	if !ok {
		return
	}
	io.activeNode = node
	io.enabled = enabled
}

// SetPlugged implements btdir.NodeControl.
func (m *Manager) SetPlugged(idx btpolicy.IODevID, plugged bool) {
	io, ok := m.iodevs[idx]
	if !ok {
		return
	}
	io.plugged = plugged
	m.logger.Debug("iodev plugged state", "iodev", idx, "plugged", plugged)
}

// Serving reports whether the iodev exists and is not suspended.
func (m *Manager) Serving(idx btpolicy.IODevID) bool {
	io, ok := m.iodevs[idx]
	return ok && !io.suspended
}

func (m *Manager) blocked(dev btpolicy.DeviceID) (bool, error) {
	if m.blocklist == nil {
		return false, nil
	}
	addr, ok := m.binder.Address(dev)
	if !ok {
		return false, nil
	}
	return m.blocklist.Contains(addr)
}

// reconcile lines the device's iodevs up with the paths that are up:
// directions a path needs gain an iodev, directions nothing needs lose
// theirs. A device with no paths left drops out of the map.
func (m *Manager) reconcile(dev btpolicy.DeviceID, p *devicePaths) {
	for _, dir := range []btpolicy.Direction{btpolicy.DirectionInput, btpolicy.DirectionOutput} {
		idx, exists := p.iodevs[dir]
		switch {
		case p.needs(dir) && !exists:
			idx = m.nextIdx
			m.nextIdx++
			m.iodevs[idx] = &iodev{idx: idx, dev: dev, dir: dir}
			p.iodevs[dir] = idx
			m.binder.AttachIODev(dev, dir, idx)
			m.logger.Debug("iodev created", "iodev", idx, "device", dev, "direction", dir)

		case !p.needs(dir) && exists:
			m.binder.DetachIODev(dev, dir)
			delete(m.iodevs, idx)
			delete(p.iodevs, dir)
			m.logger.Debug("iodev destroyed", "iodev", idx, "device", dev, "direction", dir)
		}
	}
	if !p.a2dp && !p.hfp {
		delete(m.paths, dev)
	}
}

func (m *Manager) ensure(dev btpolicy.DeviceID) *devicePaths {
	p, ok := m.paths[dev]
	if !ok {
		p = &devicePaths{iodevs: make(map[btpolicy.Direction]btpolicy.IODevID)}
		m.paths[dev] = p
	}
	return p
}
