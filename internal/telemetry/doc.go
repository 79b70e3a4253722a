// Package telemetry publishes policy engine activity and accepts external
// control commands.
//
// Three surfaces live here:
//
//   - Client: a thin MQTT wrapper over eclipse/paho with auto-reconnect,
//     LWT offline status and panic-safe subscription handlers.
//   - Reporter: the policy engine's telemetry sink. Every suspend, watch
//     and switch transition becomes a retained-free JSON event under
//     btaudio/events/#, and a point in InfluxDB when metrics are enabled.
//   - Control: the inbound command channel. Transport-side components
//     (A2DP encoder, SCO socket owner) publish failure reports under
//     btaudio/control/# and the Control handler turns them into suspend
//     scheduling on the engine.
//
// Everything here is best-effort. A broker outage drops events and control
// messages; it never stalls the policy loop.
package telemetry
