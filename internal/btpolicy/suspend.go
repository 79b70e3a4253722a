package btpolicy

import "time"

// scheduleSuspend creates the pending suspend for a device. If one already
// exists the call is a no-op and the earlier reason is preserved.
//
// Loop goroutine only.
func (e *Engine) scheduleSuspend(dev DeviceID, delay time.Duration, reason SuspendReason) {
	if _, ok := e.suspends[dev]; ok {
		e.logger.Debug("suspend already pending", "device", dev, "reason", reason)
		return
	}

	rec := &suspendRecord{dev: dev, reason: reason}
	rec.timer = e.loop.CreateTimer(delay, func() { e.suspendFired(rec) })
	e.suspends[dev] = rec

	e.logger.Info("suspend scheduled",
		"device", dev,
		"reason", reason,
		"delay_ms", delay.Milliseconds(),
	)
	e.sink.SuspendScheduled(dev, reason)
}

// cancelSuspend cancels and deletes the pending suspend, if any.
//
// Loop goroutine only.
func (e *Engine) cancelSuspend(dev DeviceID) {
	rec, ok := e.suspends[dev]
	if !ok {
		return
	}
	e.loop.CancelTimer(rec.timer)
	delete(e.suspends, dev)

	e.logger.Debug("suspend canceled", "device", dev, "reason", rec.reason)
	e.sink.SuspendCanceled(dev)
}

// suspendFired performs the destructive teardown: suspend both audio paths,
// then drop the device at the transport level. The transport disconnect is
// best-effort and never retried here.
func (e *Engine) suspendFired(rec *suspendRecord) {
	e.logger.Error(rec.reason.message(), "device", rec.dev)

	e.audio.SuspendA2DP(rec.dev)
	e.audio.SuspendHFPAudioGateway(rec.dev)
	if err := e.bt.Disconnect(rec.dev); err != nil {
		e.logger.Warn("transport disconnect failed", "device", rec.dev, "error", err)
	}

	delete(e.suspends, rec.dev)
	e.sink.SuspendFired(rec.dev, rec.reason)
}
