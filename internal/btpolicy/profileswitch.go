package btpolicy

// switchProfile suspends both directional iodevs of the device, then resumes
// input immediately and arms the debounced output resume. Both suspends
// happen before any resume so no transient double-serving spans the profile
// change.
//
// Loop goroutine only.
func (e *Engine) switchProfile(dev DeviceID, trigger IODevID) {
	for _, dir := range directions {
		if idx, ok := e.bt.IODev(dev, dir); ok {
			e.iodevs.Suspend(idx)
		}
	}

	// Input carries voice; resume it eagerly.
	if idx, ok := e.bt.IODev(dev, DirectionInput); ok {
		e.iodevs.UpdateActiveNode(idx, 0, true)
		e.iodevs.Resume(idx)
	}

	// Some peripherals fail playback renegotiation when the output comes
	// back too soon after profile handover, so its resume is debounced.
	if _, ok := e.bt.IODev(dev, DirectionOutput); ok {
		e.armOutputResume(dev)
	}

	e.logger.Debug("profile switch", "device", dev, "trigger", trigger)
	e.sink.ProfileSwitched(dev)
}

// armOutputResume starts or restarts the output resume debounce window for
// the device. Re-arming coalesces rapid repeated switches into one resume.
func (e *Engine) armOutputResume(dev DeviceID) {
	rec, ok := e.switches[dev]
	if ok {
		e.loop.CancelTimer(rec.timer)
	} else {
		rec = &switchRecord{dev: dev}
		e.switches[dev] = rec
	}
	rec.timer = e.loop.CreateTimer(e.cfg.ProfileSwitchDelay, func() { e.outputResumeFired(rec) })
}

// outputResumeFired resumes the output iodev once the debounce window
// elapses. The resume is unconditional as long as the directional iodev
// still exists on the device, even if another path re-enabled it during
// the window.
func (e *Engine) outputResumeFired(rec *switchRecord) {
	delete(e.switches, rec.dev)

	idx, ok := e.bt.IODev(rec.dev, DirectionOutput)
	if !ok {
		return
	}
	e.iodevs.UpdateActiveNode(idx, 0, true)
	e.iodevs.Resume(idx)
}
