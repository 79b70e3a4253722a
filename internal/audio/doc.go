// Package audio manages the per-device Bluetooth audio paths and the iodevs
// they expose.
//
// The Manager owns two path kinds. An A2DP path carries one playback iodev.
// An HFP audio gateway path carries a playback and a capture iodev pair.
// Starting a path creates its iodevs and registers them with the device
// directory; suspending a path tears both down again. Start and suspend are
// idempotent per device and path kind, so the policy engine can issue
// blanket suspends without tracking which paths are actually up.
//
// Devices on the HFP blocklist are refused an audio gateway; the policy
// engine turns that refusal into a suspend.
//
// All methods run on the control loop goroutine.
package audio
