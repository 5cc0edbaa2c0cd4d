package session

import (
	"context"

	"github.com/looplab/fsm"
)

// Session states.
const (
	// StateDisconnected is the initial state; no traffic yet.
	StateDisconnected = "disconnected"

	// StateIdentifying means the identification request is in flight.
	StateIdentifying = "identifying"

	// StateNegotiating means the identity arrived and capabilities and
	// the session cipher are being established.
	StateNegotiating = "negotiating"

	// StateAuthenticated is the terminal success state; logbook access
	// is permitted.
	StateAuthenticated = "authenticated"

	// StateFaulted is the terminal failure state.
	StateFaulted = "faulted"
)

// Handshake events.
const (
	eventConnect    = "connect"
	eventIdentified = "identified"
	eventNegotiated = "negotiated"
	eventFault      = "fault"
	eventDisconnect = "disconnect"
)

// newHandshakeFSM builds the handshake transition table. Faulted is
// reachable from every non-terminal state; authenticated only through
// the full identify → negotiate sequence. onChange fires on every
// transition with the fault or disconnect reason when one was given.
func newHandshakeFSM(onChange func(old, new, reason string)) *fsm.FSM {
	return fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateIdentifying},
			{Name: eventIdentified, Src: []string{StateIdentifying}, Dst: StateNegotiating},
			{Name: eventNegotiated, Src: []string{StateNegotiating}, Dst: StateAuthenticated},
			{Name: eventFault, Src: []string{StateDisconnected, StateIdentifying, StateNegotiating}, Dst: StateFaulted},
			{Name: eventDisconnect, Src: []string{
				StateDisconnected, StateIdentifying, StateNegotiating, StateAuthenticated, StateFaulted,
			}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				reason := ""
				if len(e.Args) > 0 {
					if s, ok := e.Args[0].(string); ok {
						reason = s
					}
				}
				onChange(e.Src, e.Dst, reason)
			},
		},
	)
}
