package dispatch

// Outcome is the state of a call session.
type Outcome string

const (
	OutcomeCalling    Outcome = "calling"
	OutcomeAccepted   Outcome = "accepted"
	OutcomeRejected   Outcome = "rejected"
	OutcomeNoResponse Outcome = "no_response"
)

// IsTerminal reports whether the session has been resolved. Only calling
// is not.
func (o Outcome) IsTerminal() bool {
	return o != OutcomeCalling
}

// Message is the status line shown for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeAccepted:
		return "Order Accepted! Redirecting..."
	case OutcomeRejected:
		return "Order Declined"
	case OutcomeNoResponse:
		return "No Response from Vendor"
	default:
		return "Calling Vendor..."
	}
}

func (o Outcome) String() string {
	return string(o)
}
