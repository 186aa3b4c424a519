package dispatch

import "github.com/chrisdamba/homeservices/internal/models"

// trigger is something that happens to a session.
type trigger int

const (
	// any non-terminal status, unknown statuses included
	triggerPending trigger = iota
	triggerAccepted
	triggerRejected
	triggerVendorUnavailable
	triggerTimeout
)

func (t trigger) String() string {
	switch t {
	case triggerAccepted:
		return "accepted"
	case triggerRejected:
		return "rejected"
	case triggerVendorUnavailable:
		return "vendor_unavailable"
	case triggerTimeout:
		return "timeout"
	default:
		return "pending"
	}
}

func triggerForStatus(status models.OrderStatus) trigger {
	switch status {
	case models.OrderStatusAccepted:
		return triggerAccepted
	case models.OrderStatusRejected:
		return triggerRejected
	case models.OrderStatusVendorUnavailable:
		return triggerVendorUnavailable
	default:
		return triggerPending
	}
}

// effect is the follow-up scheduled when a transition is taken.
type effect int

const (
	effectNone effect = iota
	// OnAccepted after the accepted delay, then OnClosed after the close delay
	effectAccept
	// OnClosed after the dismiss delay
	effectDismiss
)

type transitionKey struct {
	from Outcome
	on   trigger
}

type transition struct {
	next   Outcome
	effect effect
}

// transitions is the whole session state machine. Entering a terminal
// outcome stops polling. Pairs that are missing leave the session as it is,
// which covers pending statuses and everything after a terminal outcome.
var transitions = map[transitionKey]transition{
	{OutcomeCalling, triggerAccepted}:          {next: OutcomeAccepted, effect: effectAccept},
	{OutcomeCalling, triggerRejected}:          {next: OutcomeRejected, effect: effectDismiss},
	{OutcomeCalling, triggerVendorUnavailable}: {next: OutcomeNoResponse, effect: effectDismiss},
	{OutcomeCalling, triggerTimeout}:           {next: OutcomeNoResponse, effect: effectDismiss},
}

func nextTransition(from Outcome, on trigger) (transition, bool) {
	tr, ok := transitions[transitionKey{from: from, on: on}]
	return tr, ok
}
