package sessioncost

import (
	"errors"
	"time"

	"github.com/courtshare/courtshare/internal/money"
)

var (
	// ErrNoParticipants indicates a split over zero or fewer attendees.
	ErrNoParticipants = errors.New("sessioncost: at least one participant required")
	// ErrNegativeInput indicates a negative rate, quantity or flat amount.
	ErrNegativeInput = errors.New("sessioncost: negative input")
	// ErrInvalidRateCard indicates a rate card without version or effective date.
	ErrInvalidRateCard = errors.New("sessioncost: invalid rate card")
	// ErrNoRateCard indicates no rate card was in force at the requested time.
	ErrNoRateCard = errors.New("sessioncost: no rate card in force")
)

// ComponentKind distinguishes metered usage from flat fees.
type ComponentKind string

const (
	ComponentUsage ComponentKind = "USAGE"
	ComponentFlat  ComponentKind = "FLAT"
)

// Standard component labels.
const (
	LabelCourt       = "court"
	LabelShuttlecock = "shuttlecocks"
	LabelOther       = "other"
)

// Component is one cost line of a session before evaluation.
type Component struct {
	Label    string
	Kind     ComponentKind
	Rate     money.Money
	Quantity money.Money
	Amount   money.Money
}

// Usage describes a metered cost: rate * quantity.
func Usage(label string, rate, quantity money.Money) Component {
	return Component{Label: label, Kind: ComponentUsage, Rate: rate, Quantity: quantity}
}

// Flat describes a fixed fee taken as-is.
func Flat(label string, amount money.Money) Component {
	return Component{Label: label, Kind: ComponentFlat, Amount: amount}
}

// ComponentCost is an evaluated component, frozen inside a Result.
type ComponentCost struct {
	Label    string        `json:"label"`
	Kind     ComponentKind `json:"kind"`
	Rate     money.Money   `json:"rate"`
	Quantity money.Money   `json:"quantity"`
	Cost     money.Money   `json:"cost"`
}

// RateCard is a versioned set of usage rates. A new card is published for
// every price change; existing cards are never edited.
type RateCard struct {
	Version         int         `json:"version"`
	EffectiveFrom   time.Time   `json:"effective_from"`
	CourtHourly     money.Money `json:"court_hourly"`
	ShuttlecockUnit money.Money `json:"shuttlecock_unit"`
}

// SessionUsage is what was consumed during one session.
type SessionUsage struct {
	CourtHours   money.Money
	Shuttlecocks money.Money
	OtherCosts   money.Money
	OtherLabel   string
}
