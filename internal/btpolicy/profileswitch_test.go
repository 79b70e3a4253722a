package btpolicy

import (
	"testing"
	"time"
)

func TestSwitchSuspendsBothBeforeResumingInput(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.iodevs[DirectionInput] = 1
	dev.iodevs[DirectionOutput] = 2

	if err := h.engine.SwitchProfile("dev1", 2); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	h.loop.Tick()

	want := []iodevOp{
		{op: "suspend", idx: 1},
		{op: "suspend", idx: 2},
		{op: "update", idx: 1, node: 0, enabled: true},
		{op: "resume", idx: 1},
	}
	if len(h.iodevs.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", h.iodevs.ops, want)
	}
	for i := range want {
		if h.iodevs.ops[i] != want[i] {
			t.Fatalf("op[%d] = %v, want %v", i, h.iodevs.ops[i], want[i])
		}
	}
}

func TestOutputResumeDebounced(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.iodevs[DirectionOutput] = 2

	if err := h.engine.SwitchProfile("dev1", 2); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	h.loop.Tick()

	if h.iodevs.count("resume", 2) != 0 {
		t.Fatal("output resumed before the debounce window")
	}

	h.advance(500 * time.Millisecond)
	if h.iodevs.count("resume", 2) != 1 {
		t.Fatalf("output resumes = %d, want 1 at 500 ms", h.iodevs.count("resume", 2))
	}
}

func TestRapidSwitchesCoalesceIntoOneResume(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.iodevs[DirectionOutput] = 2

	if err := h.engine.SwitchProfile("dev1", 2); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	h.loop.Tick()

	h.advance(200 * time.Millisecond)
	if err := h.engine.SwitchProfile("dev1", 2); err != nil {
		t.Fatalf("second SwitchProfile: %v", err)
	}
	h.loop.Tick()

	// 500 ms after the first switch: the window was restarted, nothing yet.
	h.advance(300 * time.Millisecond)
	if h.iodevs.count("resume", 2) != 0 {
		t.Fatal("output resumed inside the restarted window")
	}

	// 500 ms after the second switch: exactly one resume.
	h.advance(200 * time.Millisecond)
	if got := h.iodevs.count("resume", 2); got != 1 {
		t.Fatalf("output resumes = %d, want 1", got)
	}

	h.advance(time.Hour)
	if got := h.iodevs.count("resume", 2); got != 1 {
		t.Fatalf("output resumes = %d after settling, want 1", got)
	}
}

func TestOutputResumeSkippedWhenIODevGone(t *testing.T) {
	h := newHarness(t)
	dev := h.bt.addDevice("dev1")
	dev.iodevs[DirectionOutput] = 2

	if err := h.engine.SwitchProfile("dev1", 2); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	h.loop.Tick()

	// The iodev disappears during the debounce window.
	delete(dev.iodevs, DirectionOutput)
	h.advance(500 * time.Millisecond)

	if h.iodevs.count("resume", 2) != 0 {
		t.Fatal("resumed an output iodev that no longer exists")
	}
	if len(h.engine.switches) != 0 {
		t.Error("switch record remains after firing")
	}
}

func TestSwitchWithoutIODevsIsHarmless(t *testing.T) {
	h := newHarness(t)
	h.bt.addDevice("dev1")

	if err := h.engine.SwitchProfile("dev1", 0); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	h.loop.Tick()
	h.advance(time.Hour)

	if len(h.iodevs.ops) != 0 {
		t.Errorf("iodev ops = %v for a device with no iodevs", h.iodevs.ops)
	}
	if len(h.engine.switches) != 0 {
		t.Error("switch record created with no output iodev")
	}
}
