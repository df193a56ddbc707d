package ledger

import (
	"bytes"
	"slices"

	"github.com/courtshare/courtshare/internal/money"
)

// GroupSummary aggregates magnitudes across participants. TotalDebt and
// TotalCredit are both non-negative.
type GroupSummary struct {
	TotalDebt   money.Money `json:"total_debt"`
	TotalCredit money.Money `json:"total_credit"`
	NetBalance  money.Money `json:"net_balance"`
	Debtors     int         `json:"debtors"`
	Creditors   int         `json:"creditors"`
	Settled     int         `json:"settled"`
}

// SummarizeGroup totals debt and credit separately, never netting one class
// against the other.
func SummarizeGroup(balances []Balance) GroupSummary {
	var s GroupSummary
	for _, b := range balances {
		switch b.Status() {
		case StatusDebt:
			s.TotalDebt = s.TotalDebt.Add(b.Debt())
			s.Debtors++
		case StatusCredit:
			s.TotalCredit = s.TotalCredit.Add(b.Credit())
			s.Creditors++
		default:
			s.Settled++
		}
	}
	s.NetBalance = signed(s.TotalCredit, CreditSign).Add(signed(s.TotalDebt, DebtSign))
	return s
}

// Groups partitions balances by status.
type Groups struct {
	Debtors   []Balance `json:"debtors"`
	Creditors []Balance `json:"creditors"`
	Settled   []Balance `json:"settled"`
}

// GroupByStatus sorts debtors by descending debt and creditors by descending
// credit. Ties, and the settled group, are ordered by participant id.
func GroupByStatus(balances []Balance) Groups {
	var g Groups
	for _, b := range balances {
		switch b.Status() {
		case StatusDebt:
			g.Debtors = append(g.Debtors, b)
		case StatusCredit:
			g.Creditors = append(g.Creditors, b)
		default:
			g.Settled = append(g.Settled, b)
		}
	}
	slices.SortStableFunc(g.Debtors, byMagnitude(Balance.Debt))
	slices.SortStableFunc(g.Creditors, byMagnitude(Balance.Credit))
	slices.SortStableFunc(g.Settled, byParticipant)
	return g
}

func byMagnitude(magnitude func(Balance) money.Money) func(a, b Balance) int {
	return func(a, b Balance) int {
		if c := magnitude(b).Cmp(magnitude(a)); c != money.Equal {
			return int(c)
		}
		return byParticipant(a, b)
	}
}

func byParticipant(a, b Balance) int {
	return bytes.Compare(a.ParticipantID[:], b.ParticipantID[:])
}
