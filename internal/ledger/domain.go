// Package ledger folds a participant's debits, credits and adjustments into a
// balance, and derives payment previews, settlement suggestions and trends.
//
// Sign convention: a positive balance means the participant holds credit; a
// negative balance means the participant owes money. CreditSign and DebtSign
// are the only place this is decided.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/money"
)

const (
	// CreditSign is the balance sign of a participant who has paid ahead.
	CreditSign = 1
	// DebtSign is the balance sign of a participant who owes money.
	DebtSign = -CreditSign
)

var (
	// ErrNonPositivePayment indicates a payment of zero or less.
	ErrNonPositivePayment = errors.New("ledger: payment must be positive")
	// ErrNegativeAmount indicates a debit or credit carrying a sign.
	ErrNegativeAmount = errors.New("ledger: debit and credit amounts must not be negative")
	// ErrReasonRequired indicates an adjustment without a reason.
	ErrReasonRequired = errors.New("ledger: adjustment reason required")
	// ErrSessionRequired indicates a debit without a session reference.
	ErrSessionRequired = errors.New("ledger: debit requires a session reference")
	// ErrDateRequired indicates a transaction without a date.
	ErrDateRequired = errors.New("ledger: transaction date required")
	// ErrUnknownKind indicates an unsupported transaction kind.
	ErrUnknownKind = errors.New("ledger: unknown transaction kind")
	// ErrParticipantMismatch indicates a transaction folded into another participant's balance.
	ErrParticipantMismatch = errors.New("ledger: transaction belongs to another participant")
	// ErrNotInDebt indicates settlement suggestions requested for a non-debtor.
	ErrNotInDebt = errors.New("ledger: participant is not in debt")
)

// Kind tags a Transaction.
type Kind string

const (
	KindDebit      Kind = "DEBIT"
	KindCredit     Kind = "CREDIT"
	KindAdjustment Kind = "ADJUSTMENT"
)

// Method records how a credit was paid.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodTransfer Method = "TRANSFER"
	MethodEWallet  Method = "EWALLET"
	MethodOther    Method = "OTHER"
)

// Transaction is one ledger movement for a participant.
//
// Debit and Credit amounts are non-negative magnitudes; only an Adjustment
// carries a sign. SessionID is set for debits, Method and Reference for
// credits, Reason for adjustments.
type Transaction struct {
	ID            uuid.UUID   `json:"id"`
	ParticipantID uuid.UUID   `json:"participant_id"`
	Kind          Kind        `json:"kind"`
	Amount        money.Money `json:"amount"`
	Date          time.Time   `json:"date"`
	SessionID     uuid.UUID   `json:"session_id,omitempty"`
	Method        Method      `json:"method,omitempty"`
	Reference     string      `json:"reference,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

// NewDebit charges a participant their share of a session.
func NewDebit(participantID uuid.UUID, amount money.Money, date time.Time, sessionID uuid.UUID) (Transaction, error) {
	tx := Transaction{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Kind:          KindDebit,
		Amount:        amount,
		Date:          date,
		SessionID:     sessionID,
	}
	return tx, tx.Validate()
}

// NewCredit records a payment received from a participant.
func NewCredit(participantID uuid.UUID, amount money.Money, date time.Time, method Method, reference string) (Transaction, error) {
	if method == "" {
		method = MethodOther
	}
	tx := Transaction{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Kind:          KindCredit,
		Amount:        amount,
		Date:          date,
		Method:        method,
		Reference:     strings.TrimSpace(reference),
	}
	return tx, tx.Validate()
}

// NewAdjustment records a signed correction to a prior credit.
func NewAdjustment(participantID uuid.UUID, amount money.Money, date time.Time, reason string) (Transaction, error) {
	tx := Transaction{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Kind:          KindAdjustment,
		Amount:        amount,
		Date:          date,
		Reason:        strings.TrimSpace(reason),
	}
	return tx, tx.Validate()
}

// Validate enforces the per-kind invariants.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrDateRequired
	}
	switch t.Kind {
	case KindDebit:
		if t.Amount.IsNegative() {
			return fmt.Errorf("%w: debit %s", ErrNegativeAmount, t.Amount)
		}
		if t.SessionID == uuid.Nil {
			return ErrSessionRequired
		}
	case KindCredit:
		if t.Amount.IsNegative() {
			return fmt.Errorf("%w: credit %s", ErrNegativeAmount, t.Amount)
		}
	case KindAdjustment:
		if strings.TrimSpace(t.Reason) == "" {
			return ErrReasonRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
	return nil
}

// Delta is the signed effect of the transaction on its participant's balance.
func (t Transaction) Delta() money.Money {
	switch t.Kind {
	case KindDebit:
		return signed(t.Amount, DebtSign)
	case KindCredit, KindAdjustment:
		return signed(t.Amount, CreditSign)
	default:
		return money.Zero
	}
}

func signed(m money.Money, sign int) money.Money {
	if sign < 0 {
		return m.Neg()
	}
	return m
}
