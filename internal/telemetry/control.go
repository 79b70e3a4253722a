package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dean840513/adhd/internal/btpolicy"
)

// Scheduler is the slice of the policy engine the control channel drives.
type Scheduler interface {
	ScheduleSuspend(dev btpolicy.DeviceID, delay time.Duration, reason btpolicy.SuspendReason) error
	CancelSuspend(dev btpolicy.DeviceID) error
	SwitchProfile(dev btpolicy.DeviceID, trigger btpolicy.IODevID) error
}

// Subscriber registers inbound message handlers. Implemented by Client.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) error
}

// suspendCommand is the inbound suspend request document. The transport
// components that watch the A2DP socket and the SCO link publish these
// when they hit errors the policy engine must act on.
type suspendCommand struct {
	Device  string `json:"device"`
	Reason  string `json:"reason"`
	DelayMS int64  `json:"delay_ms"`
}

// cancelCommand is the inbound cancellation document.
type cancelCommand struct {
	Device string `json:"device"`
}

// switchCommand is the inbound profile switch document. IODev names the
// iodev whose stream triggered the switch.
type switchCommand struct {
	Device string `json:"device"`
	IODev  uint32 `json:"iodev"`
}

// reasonTags maps wire reason tags onto suspend reasons. Only reasons that
// originate outside the policy engine are accepted from the wire.
var reasonTags = map[string]btpolicy.SuspendReason{
	"a2dp_long_tx_failure":    btpolicy.ReasonA2DPLongTxFailure,
	"a2dp_tx_fatal_error":     btpolicy.ReasonA2DPTxFatalError,
	"sco_socket_error":        btpolicy.ReasonSCOSocketError,
	"unexpected_profile_drop": btpolicy.ReasonUnexpectedProfileDrop,
}

// Control wires the inbound command topics to the policy engine.
type Control struct {
	engine Scheduler
	logger Logger
}

// NewControl creates the control channel handler.
func NewControl(engine Scheduler) *Control {
	return &Control{engine: engine, logger: noopLogger{}}
}

// SetLogger sets the logger for the control channel.
func (c *Control) SetLogger(logger Logger) {
	c.logger = logger
}

// Attach subscribes the control handlers on the given transport.
func (c *Control) Attach(sub Subscriber) error {
	if err := sub.Subscribe(TopicControlSuspend, c.handleSuspend); err != nil {
		return err
	}
	if err := sub.Subscribe(TopicControlCancel, c.handleCancel); err != nil {
		return err
	}
	return sub.Subscribe(TopicControlSwitch, c.handleSwitch)
}

func (c *Control) handleSuspend(_ string, payload []byte) error {
	var cmd suspendCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding suspend command: %w", err)
	}
	if cmd.Device == "" {
		return fmt.Errorf("suspend command without device")
	}
	reason, ok := reasonTags[cmd.Reason]
	if !ok {
		return fmt.Errorf("suspend command with unknown reason %q", cmd.Reason)
	}

	delay := time.Duration(cmd.DelayMS) * time.Millisecond
	c.logger.Warn("external suspend request",
		"device", cmd.Device,
		"reason", cmd.Reason,
		"delay_ms", cmd.DelayMS,
	)
	return c.engine.ScheduleSuspend(btpolicy.DeviceID(cmd.Device), delay, reason)
}

func (c *Control) handleCancel(_ string, payload []byte) error {
	var cmd cancelCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding cancel command: %w", err)
	}
	if cmd.Device == "" {
		return fmt.Errorf("cancel command without device")
	}
	return c.engine.CancelSuspend(btpolicy.DeviceID(cmd.Device))
}

func (c *Control) handleSwitch(_ string, payload []byte) error {
	var cmd switchCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding switch command: %w", err)
	}
	if cmd.Device == "" {
		return fmt.Errorf("switch command without device")
	}
	return c.engine.SwitchProfile(btpolicy.DeviceID(cmd.Device), btpolicy.IODevID(cmd.IODev))
}
