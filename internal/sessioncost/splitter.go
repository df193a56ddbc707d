// Package sessioncost turns session usage into a total cost and an equal,
// unrounded share per attendee.
package sessioncost

import (
	"fmt"
	"sort"
	"time"

	"github.com/courtshare/courtshare/internal/money"
)

// Result is an immutable session split. Its fields are unexported so a stored
// result cannot drift when rates change later.
type Result struct {
	components   []ComponentCost
	total        money.Money
	participants int
	share        money.Money
	rateCard     *RateCard
}

// Compute evaluates components and splits the total among participantCount.
// The share is exact; summing participantCount shares reproduces the total.
func Compute(components []Component, participantCount int) (Result, error) {
	if participantCount < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrNoParticipants, participantCount)
	}
	costs := make([]ComponentCost, 0, len(components))
	total := money.Zero
	for _, c := range components {
		cost, err := c.evaluate()
		if err != nil {
			return Result{}, err
		}
		costs = append(costs, cost)
		total = total.Add(cost.Cost)
	}
	share, err := total.DivInt(int64(participantCount))
	if err != nil {
		return Result{}, err
	}
	return Result{
		components:   costs,
		total:        total,
		participants: participantCount,
		share:        share,
	}, nil
}

func (c Component) evaluate() (ComponentCost, error) {
	switch c.Kind {
	case ComponentFlat:
		if c.Amount.IsNegative() {
			return ComponentCost{}, fmt.Errorf("%w: %s amount %s", ErrNegativeInput, c.Label, c.Amount)
		}
		return ComponentCost{Label: c.Label, Kind: c.Kind, Cost: c.Amount}, nil
	case ComponentUsage:
		if c.Rate.IsNegative() {
			return ComponentCost{}, fmt.Errorf("%w: %s rate %s", ErrNegativeInput, c.Label, c.Rate)
		}
		if c.Quantity.IsNegative() {
			return ComponentCost{}, fmt.Errorf("%w: %s quantity %s", ErrNegativeInput, c.Label, c.Quantity)
		}
		return ComponentCost{
			Label:    c.Label,
			Kind:     c.Kind,
			Rate:     c.Rate,
			Quantity: c.Quantity,
			Cost:     c.Rate.Mul(c.Quantity),
		}, nil
	default:
		return ComponentCost{}, fmt.Errorf("sessioncost: unknown component kind %q", c.Kind)
	}
}

// Components returns a copy of the evaluated components in input order.
func (r Result) Components() []ComponentCost {
	out := make([]ComponentCost, len(r.components))
	copy(out, r.components)
	return out
}

// Total is the exact sum of all component costs.
func (r Result) Total() money.Money { return r.total }

// ParticipantCount is the number of attendees the total was split among.
func (r Result) ParticipantCount() int { return r.participants }

// Share is the exact, unrounded cost per participant.
func (r Result) Share() money.Money { return r.share }

// RateCard returns the card the result was priced with, if any.
func (r Result) RateCard() (RateCard, bool) {
	if r.rateCard == nil {
		return RateCard{}, false
	}
	return *r.rateCard, true
}

// Discrepancy is total minus participantCount shares rounded to places. Its
// magnitude is always below participantCount minor units.
func (r Result) Discrepancy(places int32) money.Money {
	return r.total.Sub(r.share.RoundTo(places).MulInt(int64(r.participants)))
}

// Restore rebuilds a Result from a persisted record without re-pricing it.
func Restore(components []ComponentCost, participantCount int, card *RateCard) (Result, error) {
	if participantCount < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrNoParticipants, participantCount)
	}
	costs := make([]ComponentCost, len(components))
	copy(costs, components)
	total := money.Zero
	for _, c := range costs {
		if c.Cost.IsNegative() {
			return Result{}, fmt.Errorf("%w: %s cost %s", ErrNegativeInput, c.Label, c.Cost)
		}
		total = total.Add(c.Cost)
	}
	share, err := total.DivInt(int64(participantCount))
	if err != nil {
		return Result{}, err
	}
	res := Result{components: costs, total: total, participants: participantCount, share: share}
	if card != nil {
		frozen := *card
		res.rateCard = &frozen
	}
	return res, nil
}

// Validate checks the card can price a session.
func (c RateCard) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("%w: version must be positive", ErrInvalidRateCard)
	}
	if c.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: effective date required", ErrInvalidRateCard)
	}
	if c.CourtHourly.IsNegative() {
		return fmt.Errorf("%w: court hourly rate %s", ErrNegativeInput, c.CourtHourly)
	}
	if c.ShuttlecockUnit.IsNegative() {
		return fmt.Errorf("%w: shuttlecock unit rate %s", ErrNegativeInput, c.ShuttlecockUnit)
	}
	return nil
}

// Components prices usage against the card.
func (c RateCard) Components(u SessionUsage) []Component {
	components := []Component{
		Usage(LabelCourt, c.CourtHourly, u.CourtHours),
		Usage(LabelShuttlecock, c.ShuttlecockUnit, u.Shuttlecocks),
	}
	if !u.OtherCosts.IsZero() {
		label := u.OtherLabel
		if label == "" {
			label = LabelOther
		}
		components = append(components, Flat(label, u.OtherCosts))
	}
	return components
}

// Compute prices usage with this card and freezes the card in the result.
func (c RateCard) Compute(u SessionUsage, participantCount int) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	res, err := Compute(c.Components(u), participantCount)
	if err != nil {
		return Result{}, err
	}
	frozen := c
	res.rateCard = &frozen
	return res, nil
}

// RateCards is the published history of rate cards.
type RateCards []RateCard

// At returns the card in force at t: the latest EffectiveFrom not after t,
// highest version on ties.
func (cs RateCards) At(t time.Time) (RateCard, error) {
	sorted := make(RateCards, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EffectiveFrom.Equal(sorted[j].EffectiveFrom) {
			return sorted[i].EffectiveFrom.After(sorted[j].EffectiveFrom)
		}
		return sorted[i].Version > sorted[j].Version
	})
	for _, card := range sorted {
		if !card.EffectiveFrom.After(t) {
			return card, nil
		}
	}
	return RateCard{}, fmt.Errorf("%w at %s", ErrNoRateCard, t.Format(time.RFC3339))
}
