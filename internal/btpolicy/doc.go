// Package btpolicy implements the Bluetooth audio policy engine.
//
// The engine arbitrates A2DP/HFP profile negotiation against the iodev
// lifecycle. Three per-device schedulers run on the control loop:
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                        Policy Engine                             │
//	│                                                                  │
//	│  ┌────────────────┐  ┌──────────────────┐  ┌─────────────────┐   │
//	│  │    Suspend     │  │ Connection Watch │  │ Profile Switch  │   │
//	│  │   Scheduler    │  │  (suspend.go /   │  │   Scheduler     │   │
//	│  │  (suspend.go)  │  │   connwatch.go)  │  │(profileswitch.go)│  │
//	│  │                │  │                  │  │                 │   │
//	│  │ • dedup/device │  │ • 30 × 2 s polls │  │ • eager input   │   │
//	│  │ • reason log   │  │ • connect missing│  │ • 500 ms output │   │
//	│  │ • teardown     │  │ • escalate       │  │   debounce      │   │
//	│  └────────────────┘  └──────────────────┘  └─────────────────┘   │
//	│           ▲                    ▲                    ▲            │
//	│           └──── command processor (engine.go) ──────┘            │
//	└──────────────────────────────────────────────────────────────────┘
//
// SwitchProfile, ScheduleSuspend and CancelSuspend may be called from any
// goroutine; they marshal a command onto the event loop and return the
// enqueue result immediately. StartConnectionWatch, StopConnectionWatch and
// RemoveDevice mutate records directly and must run on the loop goroutine.
//
// All terminal failures (watch timeout, audio gateway start failure,
// transport-reported errors) converge on a scheduled suspend; the suspend
// fire handler is the single place performing destructive teardown.
//
// # Thread Safety
//
// Record state is owned by the loop goroutine and requires no locking.
// Because cancellation and firing serialize there, a cancel issued before a
// fire always prevents it.
package btpolicy
