// Package btdir maintains the directory of known Bluetooth audio devices.
//
// The Directory consumes bluez.DeviceEvent messages from the control loop
// and folds them into per-device records: which profiles the device
// advertises, which are currently connected, and which iodevs are attached
// for each stream direction. It is the policy engine's view of the Bluetooth
// world; the engine reads it through the DeviceAccessor methods and never
// touches the bus itself.
//
// # Threading
//
// All record state is owned by the control loop goroutine. Event handling,
// the accessor methods and the iodev attach hooks all run there; the
// Directory carries no locks of its own.
package btdir
