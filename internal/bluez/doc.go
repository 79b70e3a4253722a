// Package bluez binds the daemon to the BlueZ Bluetooth stack over the
// system D-Bus.
//
// The Monitor watches org.bluez object lifecycle and Device1 property
// changes, translating them into DeviceEvent messages posted onto the
// control loop. It also carries the two transport verbs the policy engine
// needs: ConnectProfile and Disconnect.
//
// Pairing, agents and property wire parsing beyond what the policy engine
// consumes are out of scope here; BlueZ owns them.
//
// # Thread Safety
//
// Monitor methods are safe for concurrent use. Events are delivered on the
// control loop goroutine via the loop's registered handler.
package bluez
