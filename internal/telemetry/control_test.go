package telemetry

import (
	"testing"
	"time"

	"github.com/dean840513/adhd/internal/btpolicy"
)

type scheduled struct {
	dev    btpolicy.DeviceID
	delay  time.Duration
	reason btpolicy.SuspendReason
}

type fakeScheduler struct {
	suspends []scheduled
	cancels  []btpolicy.DeviceID
	switches []btpolicy.DeviceID
}

func (f *fakeScheduler) ScheduleSuspend(dev btpolicy.DeviceID, delay time.Duration, reason btpolicy.SuspendReason) error {
	f.suspends = append(f.suspends, scheduled{dev: dev, delay: delay, reason: reason})
	return nil
}

func (f *fakeScheduler) CancelSuspend(dev btpolicy.DeviceID) error {
	f.cancels = append(f.cancels, dev)
	return nil
}

func (f *fakeScheduler) SwitchProfile(dev btpolicy.DeviceID, _ btpolicy.IODevID) error {
	f.switches = append(f.switches, dev)
	return nil
}

type fakeSubscriber struct {
	handlers map[string]MessageHandler
}

func (f *fakeSubscriber) Subscribe(topic string, handler MessageHandler) error {
	if f.handlers == nil {
		f.handlers = make(map[string]MessageHandler)
	}
	f.handlers[topic] = handler
	return nil
}

func attachControl(t *testing.T) (*fakeScheduler, *fakeSubscriber) {
	t.Helper()
	eng := &fakeScheduler{}
	sub := &fakeSubscriber{}
	if err := NewControl(eng).Attach(sub); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return eng, sub
}

func TestControlSchedulesSuspend(t *testing.T) {
	eng, sub := attachControl(t)

	payload := []byte(`{"device":"/org/bluez/hci0/dev_F0_98_7D_01_02_03","reason":"sco_socket_error","delay_ms":5000}`)
	if err := sub.handlers[TopicControlSuspend](TopicControlSuspend, payload); err != nil {
		t.Fatal(err)
	}

	if len(eng.suspends) != 1 {
		t.Fatalf("suspends = %v", eng.suspends)
	}
	got := eng.suspends[0]
	if got.reason != btpolicy.ReasonSCOSocketError {
		t.Errorf("reason = %v", got.reason)
	}
	if got.delay != 5*time.Second {
		t.Errorf("delay = %v, want 5s", got.delay)
	}
}

func TestControlRejectsBadCommands(t *testing.T) {
	eng, sub := attachControl(t)
	h := sub.handlers[TopicControlSuspend]

	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{`},
		{"missing device", `{"reason":"sco_socket_error"}`},
		{"unknown reason", `{"device":"/d","reason":"cosmic_rays"}`},
		{"internal-only reason", `{"device":"/d","reason":"conn_watch_timeout"}`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := h(TopicControlSuspend, []byte(tt.payload)); err == nil {
				t.Error("want error")
			}
		})
	}
	if len(eng.suspends) != 0 {
		t.Errorf("suspends = %v, want none", eng.suspends)
	}
}

func TestControlCancelsSuspend(t *testing.T) {
	eng, sub := attachControl(t)

	payload := []byte(`{"device":"/org/bluez/hci0/dev_F0_98_7D_01_02_03"}`)
	if err := sub.handlers[TopicControlCancel](TopicControlCancel, payload); err != nil {
		t.Fatal(err)
	}
	if len(eng.cancels) != 1 {
		t.Fatalf("cancels = %v", eng.cancels)
	}
}

func TestControlRequestsProfileSwitch(t *testing.T) {
	eng, sub := attachControl(t)

	payload := []byte(`{"device":"/org/bluez/hci0/dev_F0_98_7D_01_02_03","iodev":4}`)
	if err := sub.handlers[TopicControlSwitch](TopicControlSwitch, payload); err != nil {
		t.Fatal(err)
	}
	if len(eng.switches) != 1 {
		t.Fatalf("switches = %v", eng.switches)
	}

	if err := sub.handlers[TopicControlSwitch](TopicControlSwitch, []byte(`{}`)); err == nil {
		t.Error("want error for switch without device")
	}
}
