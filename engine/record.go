/*
record.go - Append-only audit trail

PURPOSE:
  One ExecutionRecord per period, produced by the orchestrator at period
  close and never mutated afterward. Each record holds the collection
  amounts in, every waterfall step's (due, paid, remaining) triple, and the
  period's trigger and fee snapshots, so any run can be replayed and
  audited step by step.
*/
package engine

// StepRecord captures one waterfall step's outcome.
type StepRecord struct {
	Step      string
	Source    CashKind
	Gated     bool // step skipped because its trigger condition was closed
	AmountDue Amount
	AmountPaid Amount
	// PaidInKind marks interest satisfied by capitalization, not cash.
	PaidInKind bool
	// RemainingAfter is the source pool's balance after the step.
	RemainingAfter Amount
}

// ExecutionRecord is the period's full audit entry.
type ExecutionRecord struct {
	Period      int
	PaymentDate Date

	InterestCollected  Amount
	PrincipalCollected Amount

	// Liquidating marks a period that ran the event-of-default priority.
	Liquidating bool

	Steps []StepRecord

	Triggers []TriggerSnapshot
	Fees     []FeeSnapshot

	// Reinvested principal diverted into lots this period.
	Reinvested Amount

	// Cash left in each pool after allocation finished.
	InterestRemaining  Amount
	PrincipalRemaining Amount
}

// TotalPaid sums every cash step payment in the record (paid-in-kind steps
// move no cash and are excluded).
func (r ExecutionRecord) TotalPaid() Amount {
	total := ZeroAmount()
	for _, s := range r.Steps {
		if s.PaidInKind {
			continue
		}
		total = total.Add(s.AmountPaid)
	}
	return total
}
