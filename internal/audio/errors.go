package audio

import "errors"

// Domain errors for the audio package.
var (
	// ErrBlocklisted is returned when a device on the HFP blocklist asks
	// for an audio gateway.
	ErrBlocklisted = errors.New("audio: device is on the HFP blocklist")
)
