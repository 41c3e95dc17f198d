package enums

// QuotePhase tracks whether a quote request is currently outstanding.
type QuotePhase string

const (
	QuotePhaseIdle    QuotePhase = "idle"
	QuotePhaseQuoting QuotePhase = "quoting"
)

// String implements fmt.Stringer.
func (q QuotePhase) String() string {
	return string(q)
}

// QuoteOutcome records how the most recent handled quote ended.
type QuoteOutcome string

const (
	QuoteOutcomeNone       QuoteOutcome = "none"
	QuoteOutcomeReconciled QuoteOutcome = "reconciled"
	QuoteOutcomeFailed     QuoteOutcome = "failed"
)

// String implements fmt.Stringer.
func (q QuoteOutcome) String() string {
	return string(q)
}
