package session

import (
	"fmt"

	"github.com/brendondev/central-empresa/internal/model"
)

// InputType enumerates the stimuli a session state machine reacts to:
// operator commands, gateway events and internal timers.
type InputType int

const (
	// InputConnectRequested is the operator asking to open the session link.
	InputConnectRequested InputType = iota
	// InputPairingChallenge is a fresh pairing code from the gateway.
	InputPairingChallenge
	// InputAuthenticated reports a successful login.
	InputAuthenticated
	// InputLinkDropped reports the link closing, explicit logout or not.
	InputLinkDropped
	// InputPairingTimeout fires when pairing sat unanswered too long.
	InputPairingTimeout
	// InputRetriesExhausted fires when the reconnect budget is spent.
	InputRetriesExhausted
	// InputFatalFailure covers credential corruption and unrecoverable
	// gateway errors.
	InputFatalFailure
	// InputDisconnectRequested is the operator asking to close the link
	// while keeping credentials for a later resume.
	InputDisconnectRequested
)

func (t InputType) String() string {
	switch t {
	case InputConnectRequested:
		return "connect_requested"
	case InputPairingChallenge:
		return "pairing_challenge"
	case InputAuthenticated:
		return "authenticated"
	case InputLinkDropped:
		return "link_dropped"
	case InputPairingTimeout:
		return "pairing_timeout"
	case InputRetriesExhausted:
		return "retries_exhausted"
	case InputFatalFailure:
		return "fatal_failure"
	case InputDisconnectRequested:
		return "disconnect_requested"
	default:
		return "unknown"
	}
}

// Input is one stimulus plus its qualifiers.
type Input struct {
	Type InputType
	// ExplicitLogout distinguishes a remote logout (credentials dead) from a
	// transient link drop on InputLinkDropped.
	ExplicitLogout bool
}

// Action is a side effect the caller must carry out after a transition. The
// machine itself never touches storage, the gateway or the broker.
type Action int

const (
	// ActionRenderQR renders the pairing challenge into a scannable payload.
	ActionRenderQR Action = iota
	// ActionSetIdentity persists the authenticated account identity.
	ActionSetIdentity
	// ActionScheduleReconnect arms the capped-backoff reconnect loop.
	ActionScheduleReconnect
	// ActionPurgeCredentials wipes the session's credential namespace.
	ActionPurgeCredentials
	// ActionStopRunner tears the session runner down; the session is at rest.
	ActionStopRunner
)

// Result is the outcome of one transition. Every legal transition persists
// the next status and notifies; Actions carries anything beyond that.
type Result struct {
	Next    string
	Actions []Action
}

func (r Result) has(a Action) bool {
	for _, x := range r.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Transition computes the next state and required side effects for one input
// against the current state. Undefined edges return an error; callers treat
// those as bugs or races and must not change state.
func Transition(current string, in Input) (Result, error) {
	switch in.Type {
	case InputConnectRequested:
		// Only a resting session may start connecting. A live one is the
		// registry's job to reject; this guards the persisted-state level.
		if current == model.SessionStatusDisconnected || current == model.SessionStatusError {
			return Result{Next: model.SessionStatusConnecting}, nil
		}

	case InputPairingChallenge:
		// First challenge enters pairing; later ones refresh the code.
		if current == model.SessionStatusConnecting || current == model.SessionStatusQRPending {
			return Result{
				Next:    model.SessionStatusQRPending,
				Actions: []Action{ActionRenderQR},
			}, nil
		}

	case InputAuthenticated:
		switch current {
		case model.SessionStatusConnecting, model.SessionStatusQRPending:
			return Result{
				Next:    model.SessionStatusConnected,
				Actions: []Action{ActionSetIdentity},
			}, nil
		case model.SessionStatusConnected:
			// Duplicate auth event after a silent re-login. Refresh identity,
			// no state change.
			return Result{
				Next:    model.SessionStatusConnected,
				Actions: []Action{ActionSetIdentity},
			}, nil
		}

	case InputLinkDropped:
		if in.ExplicitLogout {
			// Remote logout kills the pairing; stored credentials are dead.
			switch current {
			case model.SessionStatusConnected, model.SessionStatusConnecting, model.SessionStatusQRPending:
				return Result{
					Next:    model.SessionStatusDisconnected,
					Actions: []Action{ActionPurgeCredentials, ActionStopRunner},
				}, nil
			}
			break
		}
		switch current {
		case model.SessionStatusConnected, model.SessionStatusConnecting, model.SessionStatusQRPending:
			return Result{
				Next:    model.SessionStatusConnecting,
				Actions: []Action{ActionScheduleReconnect},
			}, nil
		}

	case InputPairingTimeout:
		if current == model.SessionStatusQRPending {
			return Result{
				Next:    model.SessionStatusDisconnected,
				Actions: []Action{ActionStopRunner},
			}, nil
		}

	case InputRetriesExhausted:
		if current == model.SessionStatusConnecting {
			return Result{
				Next:    model.SessionStatusError,
				Actions: []Action{ActionStopRunner},
			}, nil
		}

	case InputFatalFailure:
		switch current {
		case model.SessionStatusConnecting, model.SessionStatusQRPending, model.SessionStatusConnected:
			return Result{
				Next:    model.SessionStatusError,
				Actions: []Action{ActionStopRunner},
			}, nil
		}

	case InputDisconnectRequested:
		switch current {
		case model.SessionStatusConnecting, model.SessionStatusQRPending, model.SessionStatusConnected:
			return Result{
				Next:    model.SessionStatusDisconnected,
				Actions: []Action{ActionStopRunner},
			}, nil
		}
	}

	return Result{}, fmt.Errorf("no transition from %q on %s", current, in.Type)
}
