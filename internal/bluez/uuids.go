package bluez

// Bluetooth SIG service UUIDs for the audio profiles the daemon handles.
const (
	// UUIDA2DPSource identifies the A2DP audio source role.
	UUIDA2DPSource = "0000110a-0000-1000-8000-00805f9b34fb"

	// UUIDA2DPSink identifies the A2DP audio sink role.
	UUIDA2DPSink = "0000110b-0000-1000-8000-00805f9b34fb"

	// UUIDHFPHandsFree identifies the HFP handsfree role on the peripheral.
	UUIDHFPHandsFree = "0000111e-0000-1000-8000-00805f9b34fb"

	// UUIDHFPAudioGateway identifies the HFP audio gateway role on the host.
	UUIDHFPAudioGateway = "0000111f-0000-1000-8000-00805f9b34fb"
)

// D-Bus names of the BlueZ surface the monitor touches.
const (
	busName         = "org.bluez"
	bluezRootPath   = "/"
	deviceIface     = "org.bluez.Device1"
	adapterIface    = "org.bluez.Adapter1"
	mediaIface      = "org.bluez.MediaTransport1"
	propsIface      = "org.freedesktop.DBus.Properties"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
)
