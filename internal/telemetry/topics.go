package telemetry

// Topic layout. Events flow out under btaudio/events, commands flow in
// under btaudio/control.
const (
	topicPrefix = "btaudio"

	// TopicSystemStatus carries the daemon's online/offline status,
	// retained, with an LWT fallback for crashes.
	TopicSystemStatus = topicPrefix + "/system/status"

	// TopicSuspendEvents carries suspend scheduler transitions.
	TopicSuspendEvents = topicPrefix + "/events/suspend"

	// TopicWatchEvents carries connection watch transitions.
	TopicWatchEvents = topicPrefix + "/events/watch"

	// TopicSwitchEvents carries profile switch completions.
	TopicSwitchEvents = topicPrefix + "/events/switch"

	// TopicControlSuspend accepts external suspend requests.
	TopicControlSuspend = topicPrefix + "/control/suspend"

	// TopicControlCancel accepts suspend cancellations.
	TopicControlCancel = topicPrefix + "/control/cancel"

	// TopicControlSwitch accepts profile switch requests, published when a
	// stream needs the device's other profile family.
	TopicControlSwitch = topicPrefix + "/control/switch"
)
