package ledger

import (
	"slices"
	"time"

	"github.com/courtshare/courtshare/internal/money"
)

// TrendPoint is the running balance right after one transaction.
type TrendPoint struct {
	Date           time.Time   `json:"date"`
	RunningBalance money.Money `json:"running_balance"`
	Delta          money.Money `json:"delta"`
	Transaction    Transaction `json:"transaction"`
}

// ComputeTrend replays transactions in ascending date order. Transactions on
// the same date keep their input order. The input slice is not modified.
func ComputeTrend(txns []Transaction) ([]TrendPoint, error) {
	ordered := slices.Clone(txns)
	slices.SortStableFunc(ordered, func(a, b Transaction) int {
		return a.Date.Compare(b.Date)
	})

	points := make([]TrendPoint, 0, len(ordered))
	running := money.Zero
	for _, t := range ordered {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		delta := t.Delta()
		running = running.Add(delta)
		points = append(points, TrendPoint{
			Date:           t.Date,
			RunningBalance: running,
			Delta:          delta,
			Transaction:    t,
		})
	}
	return points, nil
}
