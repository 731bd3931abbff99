/*
account.go - Per-period cash accumulator

PURPOSE:
  An Account is the period's typed cash ledger: two running totals, one for
  interest proceeds and one for principal proceeds. Collections only ever
  increase the totals; the waterfall allocator consumes them as a ceiling on
  payments, never by writing negative additions back into the account.

INVARIANTS:
  - Balances never go negative (Add rejects negative amounts).
  - Total() == Interest() + Principal() exactly, always.
  - Rollforward either zeroes the account (collection accounts) or carries
    the balance (reserve accounts), per the account's type.
*/
package engine

// AccountKind determines rollforward behavior.
type AccountKind string

const (
	// AccountCollection resets at rollforward: each period's collections
	// stand alone.
	AccountCollection AccountKind = "collection"

	// AccountReserve carries its balance across periods until drawn.
	AccountReserve AccountKind = "reserve"
)

type Account struct {
	Name string
	Kind AccountKind

	interest  Amount
	principal Amount
}

func NewAccount(name string, kind AccountKind) *Account {
	return &Account{
		Name:      name,
		Kind:      kind,
		interest:  ZeroAmount(),
		principal: ZeroAmount(),
	}
}

// Add credits the matching running total. Negative amounts are rejected;
// withdrawal is not modeled here.
func (a *Account) Add(kind CashKind, amount Amount) error {
	if amount.IsNegative() {
		return &AmountError{Op: "account.add", Amount: amount}
	}
	switch kind {
	case CashPrincipal:
		a.principal = a.principal.Add(amount)
	default:
		a.interest = a.interest.Add(amount)
	}
	return nil
}

func (a *Account) Interest() Amount  { return a.interest }
func (a *Account) Principal() Amount { return a.principal }
func (a *Account) Total() Amount     { return a.interest.Add(a.principal) }

// Rollforward closes the period. Collection accounts reset; reserve accounts
// carry their balance into the next period.
func (a *Account) Rollforward() {
	if a.Kind == AccountReserve {
		return
	}
	a.interest = ZeroAmount()
	a.principal = ZeroAmount()
}

// Draw removes up to the requested amount from the given side of a reserve
// account, returning what was actually drawn. Collection accounts cannot be
// drawn; the waterfall consumes their totals as pool ceilings instead.
func (a *Account) Draw(kind CashKind, amount Amount) Amount {
	if a.Kind != AccountReserve || amount.IsNegative() {
		return ZeroAmount()
	}
	switch kind {
	case CashPrincipal:
		drawn := amount.Min(a.principal)
		a.principal = a.principal.Sub(drawn)
		return drawn
	default:
		drawn := amount.Min(a.interest)
		a.interest = a.interest.Sub(drawn)
		return drawn
	}
}
