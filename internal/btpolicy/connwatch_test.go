package btpolicy

import (
	"errors"
	"testing"
	"time"

	"github.com/dean840513/adhd/internal/eventloop"
)

func TestWatchTimesOutAtRetryBudget(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true
	dev.supported[ProfileHFP] = true
	// Neither profile ever connects.

	h.engine.StartConnectionWatch("dev1")

	// 29 unresolved ticks: t = 2000 .. 58000 ms.
	for i := 0; i < 29; i++ {
		h.advance(2000 * time.Millisecond)
		if len(h.bt.disconnects) != 0 {
			t.Fatalf("suspend fired after tick %d, before the retry budget", i+1)
		}
	}

	// Just before the final tick nothing fires.
	h.advance(1999 * time.Millisecond)
	if len(h.bt.disconnects) != 0 {
		t.Fatal("suspend fired before 60000 ms")
	}

	// The 30th tick at t=60000 ms exhausts the budget; the zero-delay
	// suspend fires within the same tick.
	h.advance(1 * time.Millisecond)
	if h.sink.timedOut != 1 {
		t.Fatalf("timeouts = %d, want 1", h.sink.timedOut)
	}
	if len(h.sink.fired) != 1 || h.sink.fired[0] != ReasonConnWatchTimeout {
		t.Fatalf("fired = %v, want [conn_watch_timeout]", h.sink.fired)
	}
	if len(h.bt.disconnects) != 1 {
		t.Fatalf("disconnects = %v, want [dev1] at 60000 ms", h.bt.disconnects)
	}
	if len(h.engine.watches) != 0 {
		t.Error("watch record remains after timeout")
	}
}

func TestWatchRequestsExactlyOneMissingProfile(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true
	dev.supported[ProfileHFP] = true
	dev.connected[ProfileA2DP] = true

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	if len(h.bt.connectRequests) != 1 {
		t.Fatalf("connect requests = %v, want exactly one", h.bt.connectRequests)
	}
	if got := h.bt.connectRequests[0]; got.profile != ProfileHFP {
		t.Errorf("requested profile = %v, want hfp", got.profile)
	}
}

func TestWatchNeitherConnectedRequestsNothing(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true
	dev.supported[ProfileHFP] = true

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	if len(h.bt.connectRequests) != 0 {
		t.Fatalf("connect requests = %v, want none when neither profile is connected", h.bt.connectRequests)
	}
}

func TestWatchResolutionStartsPathsOnce(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true
	dev.supported[ProfileHFP] = true
	dev.connected[ProfileA2DP] = true
	dev.connected[ProfileHFP] = true

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	if len(h.bt.removeConflicting) != 1 {
		t.Errorf("remove conflicting calls = %d, want 1", len(h.bt.removeConflicting))
	}
	if len(h.audio.a2dpStarts) != 1 {
		t.Errorf("A2DP starts = %v, want one", h.audio.a2dpStarts)
	}
	if len(h.audio.agStarts) != 1 {
		t.Errorf("AG starts = %v, want one", h.audio.agStarts)
	}
	if !h.bt.plugged["dev1"] {
		t.Error("nodes not marked plugged on resolution")
	}
	if len(h.engine.watches) != 0 {
		t.Error("watch record remains after resolution")
	}

	// No further ticks happen.
	h.advance(time.Hour)
	if len(h.audio.a2dpStarts) != 1 || len(h.audio.agStarts) != 1 {
		t.Error("paths started again after resolution")
	}
}

func TestWatchResolutionStartsOnlyConnectedFamilies(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true
	dev.connected[ProfileA2DP] = true
	// HFP unsupported: supported == connected holds for both families.

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	if len(h.audio.a2dpStarts) != 1 {
		t.Errorf("A2DP starts = %v, want one", h.audio.a2dpStarts)
	}
	if len(h.audio.agStarts) != 0 {
		t.Errorf("AG starts = %v, want none", h.audio.agStarts)
	}
}

func TestWatchAGStartFailureSchedulesSuspend(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileHFP] = true
	dev.connected[ProfileHFP] = true
	h.audio.agErr = errors.New("socket refused")

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	// Zero-delay suspend fires in the same tick.
	if len(h.sink.fired) != 1 || h.sink.fired[0] != ReasonHFPAGStartFailure {
		t.Fatalf("fired = %v, want [hfp_ag_start_failure]", h.sink.fired)
	}
	if len(h.bt.disconnects) != 1 {
		t.Fatalf("disconnects = %v, want [dev1]", h.bt.disconnects)
	}
}

func TestWatchNonAudioDeviceFinishesSilently(t *testing.T) {
	h := newHarness(t)
	h.bt.addDevice("dev1") // no profiles advertised

	h.engine.StartConnectionWatch("dev1")
	h.advance(2000 * time.Millisecond)

	if len(h.engine.watches) != 0 {
		t.Error("watch record remains for non-audio device")
	}
	if len(h.bt.connectRequests)+len(h.bt.disconnects)+len(h.sink.scheduled) != 0 {
		t.Error("non-audio device triggered policy actions")
	}
}

func TestStartWatchRestartsRetryBudget(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true

	h.engine.StartConnectionWatch("dev1")
	// Burn most of the budget.
	for i := 0; i < 25; i++ {
		h.advance(2000 * time.Millisecond)
	}

	h.engine.StartConnectionWatch("dev1")
	// A fresh budget of 30 periods must elapse before timeout.
	for i := 0; i < 29; i++ {
		h.advance(2000 * time.Millisecond)
	}
	if h.sink.timedOut != 0 {
		t.Fatal("watch timed out before the restarted budget elapsed")
	}
	h.advance(2000 * time.Millisecond)
	if h.sink.timedOut != 1 {
		t.Fatal("restarted watch did not time out at its new budget")
	}
}

func TestStopConnectionWatchIdempotent(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true

	h.engine.StartConnectionWatch("dev1")
	h.engine.StopConnectionWatch("dev1")
	h.engine.StopConnectionWatch("dev1")
	h.engine.StopConnectionWatch("never-watched")

	h.advance(time.Hour)
	if h.sink.timedOut != 0 || len(h.bt.disconnects) != 0 {
		t.Error("stopped watch still acted")
	}
}

func TestWatchPeriodAndRetriesConfigurable(t *testing.T) {
	h := &harness{
		clock:  newManualClock(),
		bt:     newFakeAccessor(),
		iodevs: &fakeIODevs{},
		audio:  &fakeAudio{},
		sink:   &fakeSink{},
	}
	h.loop = eventloop.New(eventloop.Config{Clock: h.clock})
	h.engine = New(h.loop, h.bt, h.iodevs, h.audio, Config{
		ConnWatchPeriod:     100 * time.Millisecond,
		ConnWatchMaxRetries: 2,
	})
	h.engine.SetSink(h.sink)
	if err := h.engine.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	dev := h.bt.addDevice("dev1")
	dev.supported[ProfileA2DP] = true

	h.engine.StartConnectionWatch("dev1")
	h.advance(100 * time.Millisecond)
	if h.sink.timedOut != 0 {
		t.Fatal("timed out after one tick with a two-retry budget")
	}
	h.advance(100 * time.Millisecond)
	if h.sink.timedOut != 1 {
		t.Fatal("did not time out after the configured retries")
	}
}
