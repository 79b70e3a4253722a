package btpolicy

import "time"

// DeviceID is the opaque, stable identity of a Bluetooth device. The policy
// engine never owns the device record behind it; the device directory does.
type DeviceID string

// IODevID is the index of a playback or capture iodev.
type IODevID uint32

// Profile is a Bluetooth audio profile family.
type Profile int

const (
	// ProfileA2DP is the A2DP sink role (high quality playback).
	ProfileA2DP Profile = iota

	// ProfileHFP is the HFP handsfree role (bidirectional voice).
	ProfileHFP
)

// String returns the profile name for logging.
func (p Profile) String() string {
	switch p {
	case ProfileA2DP:
		return "a2dp"
	case ProfileHFP:
		return "hfp"
	default:
		return "unknown"
	}
}

// Direction identifies a stream direction of an iodev.
type Direction int

const (
	// DirectionInput is the capture direction.
	DirectionInput Direction = iota

	// DirectionOutput is the playback direction.
	DirectionOutput
)

// String returns the direction name for logging.
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// directions enumerates both stream directions in suspend order.
var directions = [...]Direction{DirectionInput, DirectionOutput}

// SuspendReason is the reason code for a scheduled device suspend.
// Each reason is logged with a distinct, operator-diagnosable message.
type SuspendReason int

const (
	// ReasonA2DPLongTxFailure reports a prolonged A2DP transmit failure.
	ReasonA2DPLongTxFailure SuspendReason = iota

	// ReasonA2DPTxFatalError reports an unrecoverable A2DP transmit error.
	ReasonA2DPTxFatalError

	// ReasonConnWatchTimeout reports that the connection watch exhausted
	// its retries without all supported profiles connecting.
	ReasonConnWatchTimeout

	// ReasonSCOSocketError reports an error on the HFP SCO voice link.
	ReasonSCOSocketError

	// ReasonHFPAGStartFailure reports that the HFP audio gateway failed
	// to start after the profile connected.
	ReasonHFPAGStartFailure

	// ReasonUnexpectedProfileDrop reports a profile disconnecting while
	// the device was in use.
	ReasonUnexpectedProfileDrop
)

// String returns the reason tag used in telemetry.
func (r SuspendReason) String() string {
	switch r {
	case ReasonA2DPLongTxFailure:
		return "a2dp_long_tx_failure"
	case ReasonA2DPTxFatalError:
		return "a2dp_tx_fatal_error"
	case ReasonConnWatchTimeout:
		return "conn_watch_timeout"
	case ReasonSCOSocketError:
		return "sco_socket_error"
	case ReasonHFPAGStartFailure:
		return "hfp_ag_start_failure"
	case ReasonUnexpectedProfileDrop:
		return "unexpected_profile_drop"
	default:
		return "unknown"
	}
}

// message returns the operator-facing log line for a suspend fire.
func (r SuspendReason) message() string {
	switch r {
	case ReasonA2DPLongTxFailure:
		return "suspend device: A2DP long Tx failure"
	case ReasonA2DPTxFatalError:
		return "suspend device: A2DP Tx fatal error"
	case ReasonConnWatchTimeout:
		return "suspend device: connection watch timed out"
	case ReasonSCOSocketError:
		return "suspend device: SCO socket error"
	case ReasonHFPAGStartFailure:
		return "suspend device: HFP audio gateway start failure"
	case ReasonUnexpectedProfileDrop:
		return "suspend device: unexpected profile drop"
	default:
		return "suspend device: unknown reason"
	}
}

// Policy timing defaults. Overridable through Config.
const (
	// DefaultConnWatchPeriod is the fixed interval between connection
	// watch polls.
	DefaultConnWatchPeriod = 2000 * time.Millisecond

	// DefaultConnWatchMaxRetries is the number of polls before a watch
	// escalates to suspend.
	DefaultConnWatchMaxRetries = 30

	// DefaultProfileSwitchDelay is the debounce window for the output
	// iodev resume after a profile switch.
	DefaultProfileSwitchDelay = 500 * time.Millisecond
)

// Config contains the policy timing knobs.
type Config struct {
	// ConnWatchPeriod is the connection watch poll interval.
	ConnWatchPeriod time.Duration

	// ConnWatchMaxRetries is the connection watch retry budget.
	ConnWatchMaxRetries int

	// ProfileSwitchDelay is the output resume debounce window.
	ProfileSwitchDelay time.Duration
}

// withDefaults fills zero fields with the default policy constants.
func (c Config) withDefaults() Config {
	if c.ConnWatchPeriod <= 0 {
		c.ConnWatchPeriod = DefaultConnWatchPeriod
	}
	if c.ConnWatchMaxRetries <= 0 {
		c.ConnWatchMaxRetries = DefaultConnWatchMaxRetries
	}
	if c.ProfileSwitchDelay <= 0 {
		c.ProfileSwitchDelay = DefaultProfileSwitchDelay
	}
	return c
}
