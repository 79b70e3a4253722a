package btpolicy

// StartConnectionWatch begins polling the device's profile connection state.
// A watch already running for the device is restarted with a full retry
// budget.
//
// Loop goroutine only.
func (e *Engine) StartConnectionWatch(dev DeviceID) {
	rec, ok := e.watches[dev]
	if ok {
		e.loop.CancelTimer(rec.timer)
	} else {
		rec = &watchRecord{dev: dev}
		e.watches[dev] = rec
	}
	rec.retriesLeft = e.cfg.ConnWatchMaxRetries
	rec.timer = e.loop.CreateTimer(e.cfg.ConnWatchPeriod, func() { e.watchTick(rec) })

	e.logger.Debug("connection watch started", "device", dev, "retries", rec.retriesLeft)
	e.sink.WatchStarted(dev)
}

// StopConnectionWatch cancels the device's connection watch. A no-op when
// none is running.
//
// Loop goroutine only.
func (e *Engine) StopConnectionWatch(dev DeviceID) {
	rec, ok := e.watches[dev]
	if !ok {
		return
	}
	e.loop.CancelTimer(rec.timer)
	delete(e.watches, dev)
	e.logger.Debug("connection watch stopped", "device", dev)
}

// watchTick evaluates one poll of the {A2DP, HFP} × {supported, connected}
// matrix for the watched device.
func (e *Engine) watchTick(rec *watchRecord) {
	dev := rec.dev
	rec.timer = nil

	// A device advertising no audio profiles is not an audio device;
	// finish silently.
	if !e.bt.HasAudioProfiles(dev) {
		delete(e.watches, dev)
		return
	}

	a2dpSupported := e.bt.SupportsProfile(dev, ProfileA2DP)
	a2dpConnected := e.bt.ProfileConnected(dev, ProfileA2DP)
	hfpSupported := e.bt.SupportsProfile(dev, ProfileHFP)
	hfpConnected := e.bt.ProfileConnected(dev, ProfileHFP)

	// When both families are supported and exactly one is connected, ask
	// the transport for the missing one. Never both in the same tick; when
	// neither is connected the transport is expected to report the first
	// connection on its own.
	if a2dpSupported && hfpSupported {
		switch {
		case !a2dpConnected && hfpConnected:
			e.requestConnect(dev, ProfileA2DP)
		case a2dpConnected && !hfpConnected:
			e.requestConnect(dev, ProfileHFP)
		}
	}

	if a2dpSupported != a2dpConnected || hfpSupported != hfpConnected {
		rec.retriesLeft--
		e.logger.Debug("connection watch unresolved",
			"device", dev,
			"retries_left", rec.retriesLeft,
		)
		if rec.retriesLeft > 0 {
			rec.timer = e.loop.CreateTimer(e.cfg.ConnWatchPeriod, func() { e.watchTick(rec) })
			return
		}

		e.logger.Error("connection watch timed out", "device", dev)
		delete(e.watches, dev)
		e.sink.WatchTimedOut(dev)
		e.scheduleSuspend(dev, 0, ReasonConnWatchTimeout)
		return
	}

	// Every supported profile is connected. Only the latest connected
	// Bluetooth audio device is exposed, so drop all conflicting devices
	// before starting this one's paths.
	e.bt.RemoveConflicting(dev)

	if a2dpConnected {
		e.audio.StartA2DP(dev)
	}
	if hfpConnected {
		if err := e.audio.StartHFPAudioGateway(dev); err != nil {
			e.logger.Error("starting HFP audio gateway", "device", dev, "error", err)
			e.scheduleSuspend(dev, 0, ReasonHFPAGStartFailure)
		}
	}
	e.bt.SetNodesPlugged(dev, true)

	delete(e.watches, dev)
	e.logger.Info("connection watch resolved",
		"device", dev,
		"a2dp", a2dpConnected,
		"hfp", hfpConnected,
	)
	e.sink.WatchResolved(dev, e.cfg.ConnWatchMaxRetries-rec.retriesLeft)
}

// requestConnect issues one connect request for the missing profile.
// Failures are logged only; the next tick re-evaluates.
func (e *Engine) requestConnect(dev DeviceID, p Profile) {
	if err := e.bt.ConnectProfile(dev, p); err != nil {
		e.logger.Debug("connect profile request failed",
			"device", dev,
			"profile", p,
			"error", err,
		)
	}
}
