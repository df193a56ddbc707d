package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/money"
)

// Status classifies a balance.
type Status string

const (
	StatusDebt    Status = "DEBT"
	StatusCredit  Status = "CREDIT"
	StatusSettled Status = "SETTLED"
)

// Balance is a participant's net position.
type Balance struct {
	ParticipantID    uuid.UUID   `json:"participant_id"`
	TotalCredits     money.Money `json:"total_credits"`
	TotalDebits      money.Money `json:"total_debits"`
	TotalAdjustments money.Money `json:"total_adjustments"`
	Current          money.Money `json:"current"`
	Transactions     int         `json:"transactions"`
}

// ComputeBalance folds transactions once into a balance. Each total is kept as
// a separate accumulator built with Add only.
func ComputeBalance(participantID uuid.UUID, txns []Transaction) (Balance, error) {
	b := Balance{ParticipantID: participantID}
	for i, t := range txns {
		if err := t.Validate(); err != nil {
			return Balance{}, fmt.Errorf("ledger: transaction %d: %w", i, err)
		}
		if participantID != uuid.Nil && t.ParticipantID != uuid.Nil && t.ParticipantID != participantID {
			return Balance{}, fmt.Errorf("%w: transaction %s", ErrParticipantMismatch, t.ID)
		}
		switch t.Kind {
		case KindDebit:
			b.TotalDebits = b.TotalDebits.Add(t.Amount)
		case KindCredit:
			b.TotalCredits = b.TotalCredits.Add(t.Amount)
		case KindAdjustment:
			b.TotalAdjustments = b.TotalAdjustments.Add(t.Amount)
		}
		b.Transactions++
	}
	b.Current = b.net()
	return b, nil
}

func (b Balance) net() money.Money {
	return signed(b.TotalCredits.Add(b.TotalAdjustments).Sub(b.TotalDebits), CreditSign)
}

// Merge combines two balances folded over disjoint parts of one history.
func (b Balance) Merge(o Balance) Balance {
	merged := Balance{
		ParticipantID:    b.ParticipantID,
		TotalCredits:     b.TotalCredits.Add(o.TotalCredits),
		TotalDebits:      b.TotalDebits.Add(o.TotalDebits),
		TotalAdjustments: b.TotalAdjustments.Add(o.TotalAdjustments),
		Transactions:     b.Transactions + o.Transactions,
	}
	if merged.ParticipantID == uuid.Nil {
		merged.ParticipantID = o.ParticipantID
	}
	merged.Current = merged.net()
	return merged
}

// Status classifies the current balance exactly; zero is settled.
func (b Balance) Status() Status {
	switch b.Current.Sign() {
	case 0:
		return StatusSettled
	case CreditSign:
		return StatusCredit
	default:
		return StatusDebt
	}
}

func (b Balance) IsDebt() bool    { return b.Status() == StatusDebt }
func (b Balance) IsCredit() bool  { return b.Status() == StatusCredit }
func (b Balance) IsSettled() bool { return b.Status() == StatusSettled }

// Debt is the non-negative amount owed, zero unless the balance is a debt.
func (b Balance) Debt() money.Money {
	if !b.IsDebt() {
		return money.Zero
	}
	return b.Current.Abs()
}

// Credit is the non-negative amount held in credit, zero unless the balance is a credit.
func (b Balance) Credit() money.Money {
	if !b.IsCredit() {
		return money.Zero
	}
	return b.Current.Abs()
}

// Format renders the balance with an explicit sign so credit reads "+$10.75"
// and debt reads "-$4.00".
func (b Balance) Format(opts money.FormatOptions) string {
	opts.ShowExplicitSign = true
	return b.Current.Format(opts)
}
