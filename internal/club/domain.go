package club

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/money"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

var (
	// ErrParticipantNotFound indicates a missing participant.
	ErrParticipantNotFound = errors.New("club: participant not found")
	// ErrSessionNotFound indicates a missing session.
	ErrSessionNotFound = errors.New("club: session not found")
	// ErrDuplicatePayment indicates a payment reference already recorded.
	ErrDuplicatePayment = errors.New("club: payment reference already recorded")
	// ErrRateCardConflict indicates a concurrent publish took the same version.
	ErrRateCardConflict = errors.New("club: rate card version already published")
	// ErrDuplicateAttendee indicates the same participant listed twice for a session.
	ErrDuplicateAttendee = errors.New("club: attendee listed more than once")
	// ErrInactiveParticipant indicates a write against a deactivated participant.
	ErrInactiveParticipant = errors.New("club: participant is inactive")
	// ErrNameRequired indicates a participant without a name.
	ErrNameRequired = errors.New("club: participant name required")
	// ErrSessionDateRequired indicates a session without a play date.
	ErrSessionDateRequired = errors.New("club: session date required")
)

// Participant is a club member who attends sessions.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is a completed session as stored. Components, totals and the
// rate card version are written once and never re-priced.
type SessionRecord struct {
	ID               uuid.UUID                   `json:"id"`
	PlayedOn         time.Time                   `json:"played_on"`
	RateCardVersion  int                         `json:"rate_card_version"`
	Components       []sessioncost.ComponentCost `json:"components"`
	Total            money.Money                 `json:"total"`
	ParticipantCount int                         `json:"participant_count"`
	Share            money.Money                 `json:"share"`
	Attendees        []uuid.UUID                 `json:"attendees"`
	Notes            string                      `json:"notes,omitempty"`
	CompletedAt      time.Time                   `json:"completed_at"`
}

// PublishRateCardInput creates the next rate card version.
type PublishRateCardInput struct {
	EffectiveFrom   time.Time
	CourtHourly     money.Money
	ShuttlecockUnit money.Money
}

// CompleteSessionInput records a played session.
type CompleteSessionInput struct {
	PlayedOn  time.Time
	Usage     sessioncost.SessionUsage
	Attendees []uuid.UUID
	Notes     string
}

// Validate checks attendee list shape.
func (in CompleteSessionInput) Validate() error {
	if in.PlayedOn.IsZero() {
		return ErrSessionDateRequired
	}
	if len(in.Attendees) == 0 {
		return sessioncost.ErrNoParticipants
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Attendees))
	for _, id := range in.Attendees {
		if id == uuid.Nil {
			return fmt.Errorf("%w: nil id", ErrParticipantNotFound)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAttendee, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// RecordPaymentInput records money received from a participant.
type RecordPaymentInput struct {
	ParticipantID uuid.UUID
	Amount        money.Money
	Date          time.Time
	Method        ledger.Method
	Reference     string
}

// RecordAdjustmentInput records a signed correction.
type RecordAdjustmentInput struct {
	ParticipantID uuid.UUID
	Amount        money.Money
	Date          time.Time
	Reason        string
}

func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}
