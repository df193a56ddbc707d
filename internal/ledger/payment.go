package ledger

import (
	"fmt"

	"github.com/courtshare/courtshare/internal/money"
)

var (
	smallDebtLimit  = money.FromInt(10)
	smallDebtStep   = money.FromInt(5)
	largeDebtStep   = money.FromInt(10)
	minimumHalfStep = money.FromInt(5)
)

// PaymentImpact previews a payment against a balance.
// RemainingDebt and Overpayment are never both positive.
type PaymentImpact struct {
	Payment        money.Money `json:"payment"`
	Before         Balance     `json:"before"`
	NewBalance     money.Money `json:"new_balance"`
	IsFullySettled bool        `json:"is_fully_settled"`
	RemainingDebt  money.Money `json:"remaining_debt"`
	Overpayment    money.Money `json:"overpayment"`
}

// ApplyPayment computes the balance after a payment without recording it.
func ApplyPayment(b Balance, payment money.Money) (PaymentImpact, error) {
	if !payment.IsPositive() {
		return PaymentImpact{}, fmt.Errorf("%w: %s", ErrNonPositivePayment, payment)
	}
	after := b.Current.Add(signed(payment, CreditSign))
	projected := Balance{ParticipantID: b.ParticipantID, Current: after}
	impact := PaymentImpact{
		Payment:       payment,
		Before:        b,
		NewBalance:    after,
		RemainingDebt: projected.Debt(),
		Overpayment:   projected.Credit(),
	}
	impact.IsFullySettled = impact.RemainingDebt.IsZero()
	return impact, nil
}

// Suggestions are ready-to-use payment amounts for a debtor. RoundedUp and
// Half are nil when they would not differ usefully from Exact.
type Suggestions struct {
	Exact     money.Money  `json:"exact"`
	RoundedUp *money.Money `json:"rounded_up,omitempty"`
	Half      *money.Money `json:"half,omitempty"`
}

// SuggestSettlementAmounts proposes the exact debt, the debt rounded up to
// the next 5 (below 10) or 10, and half the debt with a floor of 5.
func SuggestSettlementAmounts(b Balance) (Suggestions, error) {
	if !b.IsDebt() {
		return Suggestions{}, ErrNotInDebt
	}
	exact := b.Debt()
	s := Suggestions{Exact: exact}

	step := largeDebtStep
	if exact.LessThan(smallDebtLimit) {
		step = smallDebtStep
	}
	roundedUp, err := exact.RoundToIncrement(step, money.Ceiling)
	if err != nil {
		return Suggestions{}, err
	}
	if roundedUp.GreaterThan(exact) {
		s.RoundedUp = &roundedUp
	}

	half, err := exact.DivInt(2)
	if err != nil {
		return Suggestions{}, err
	}
	half = money.Max(half, minimumHalfStep)
	if half.LessThan(exact) {
		s.Half = &half
	}
	return s, nil
}
