package club

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/money"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

const dateLayout = "2006-01-02"

type participantRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type rateCardRequest struct {
	EffectiveFrom   string `json:"effective_from" validate:"required"`
	CourtHourly     string `json:"court_hourly" validate:"required"`
	ShuttlecockUnit string `json:"shuttlecock_unit" validate:"required"`
}

type usageRequest struct {
	PlayedOn     string `json:"played_on" validate:"required"`
	CourtHours   string `json:"court_hours"`
	Shuttlecocks string `json:"shuttlecocks"`
	OtherCosts   string `json:"other_costs"`
	OtherLabel   string `json:"other_label" validate:"max=60"`
}

type quoteRequest struct {
	usageRequest
	Participants int `json:"participants" validate:"required,gt=0"`
}

type sessionRequest struct {
	usageRequest
	Attendees []string `json:"attendees" validate:"required,min=1,dive,uuid"`
	Notes     string   `json:"notes" validate:"max=500"`
}

type paymentRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Date      string `json:"date"`
	Method    string `json:"method" validate:"omitempty,oneof=CASH TRANSFER EWALLET OTHER"`
	Reference string `json:"reference" validate:"max=120"`
}

type adjustmentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Date   string `json:"date"`
	Reason string `json:"reason" validate:"required,max=250"`
}

func (r usageRequest) toUsage() (time.Time, sessioncost.SessionUsage, error) {
	playedOn, err := parseDate(r.PlayedOn)
	if err != nil {
		return time.Time{}, sessioncost.SessionUsage{}, err
	}
	var u sessioncost.SessionUsage
	if u.CourtHours, err = optionalAmount("court_hours", r.CourtHours); err != nil {
		return time.Time{}, u, err
	}
	if u.Shuttlecocks, err = optionalAmount("shuttlecocks", r.Shuttlecocks); err != nil {
		return time.Time{}, u, err
	}
	if u.OtherCosts, err = optionalAmount("other_costs", r.OtherCosts); err != nil {
		return time.Time{}, u, err
	}
	u.OtherLabel = strings.TrimSpace(r.OtherLabel)
	return playedOn, u, nil
}

func (r sessionRequest) toInput() (CompleteSessionInput, error) {
	playedOn, usage, err := r.toUsage()
	if err != nil {
		return CompleteSessionInput{}, err
	}
	attendees := make([]uuid.UUID, 0, len(r.Attendees))
	for _, raw := range r.Attendees {
		id, err := uuid.Parse(raw)
		if err != nil {
			return CompleteSessionInput{}, fieldError("attendees", err)
		}
		attendees = append(attendees, id)
	}
	return CompleteSessionInput{PlayedOn: playedOn, Usage: usage, Attendees: attendees, Notes: strings.TrimSpace(r.Notes)}, nil
}

func (r rateCardRequest) toInput() (PublishRateCardInput, error) {
	from, err := parseDate(r.EffectiveFrom)
	if err != nil {
		return PublishRateCardInput{}, err
	}
	court, err := amount("court_hourly", r.CourtHourly)
	if err != nil {
		return PublishRateCardInput{}, err
	}
	shuttle, err := amount("shuttlecock_unit", r.ShuttlecockUnit)
	if err != nil {
		return PublishRateCardInput{}, err
	}
	return PublishRateCardInput{EffectiveFrom: from, CourtHourly: court, ShuttlecockUnit: shuttle}, nil
}

func (r paymentRequest) toInput(participantID uuid.UUID) (RecordPaymentInput, error) {
	amt, err := amount("amount", r.Amount)
	if err != nil {
		return RecordPaymentInput{}, err
	}
	date, err := optionalDate(r.Date)
	if err != nil {
		return RecordPaymentInput{}, err
	}
	return RecordPaymentInput{
		ParticipantID: participantID,
		Amount:        amt,
		Date:          date,
		Method:        ledger.Method(r.Method),
		Reference:     r.Reference,
	}, nil
}

func (r adjustmentRequest) toInput(participantID uuid.UUID) (RecordAdjustmentInput, error) {
	amt, err := amount("amount", r.Amount)
	if err != nil {
		return RecordAdjustmentInput{}, err
	}
	date, err := optionalDate(r.Date)
	if err != nil {
		return RecordAdjustmentInput{}, err
	}
	return RecordAdjustmentInput{ParticipantID: participantID, Amount: amt, Date: date, Reason: r.Reason}, nil
}

// amount accepts decimal numerals such as "-5", "$12.50" or "1,234.56".
// The exact "num/den" form is reserved for storage and is rejected here.
func amount(field, raw string) (money.Money, error) {
	m, err := money.Parse(raw)
	if err != nil {
		return money.Zero, fieldError(field, err)
	}
	return m, nil
}

func optionalAmount(field, raw string) (money.Money, error) {
	if strings.TrimSpace(raw) == "" {
		return money.Zero, nil
	}
	return amount(field, raw)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fieldError("date", fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", raw))
	}
	return t, nil
}

func optionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

// ErrInvalidRequest marks malformed request input.
var ErrInvalidRequest = fmt.Errorf("club: invalid request")

func fieldError(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidRequest, field, err)
}

type moneyView struct {
	Exact   string `json:"exact"`
	Display string `json:"display"`
}

func (h *Handler) money(m money.Money) moneyView {
	return moneyView{Exact: m.Exact(), Display: m.Format(h.format)}
}

func (h *Handler) optionalMoney(m *money.Money) *moneyView {
	if m == nil {
		return nil
	}
	v := h.money(*m)
	return &v
}

type balanceView struct {
	ParticipantID    uuid.UUID     `json:"participant_id"`
	Status           ledger.Status `json:"status"`
	Current          moneyView     `json:"current"`
	Display          string        `json:"display"`
	TotalCredits     moneyView     `json:"total_credits"`
	TotalDebits      moneyView     `json:"total_debits"`
	TotalAdjustments moneyView     `json:"total_adjustments"`
	Transactions     int           `json:"transactions"`
}

func (h *Handler) balance(b ledger.Balance) balanceView {
	return balanceView{
		ParticipantID:    b.ParticipantID,
		Status:           b.Status(),
		Current:          h.money(b.Current),
		Display:          b.Format(h.format),
		TotalCredits:     h.money(b.TotalCredits),
		TotalDebits:      h.money(b.TotalDebits),
		TotalAdjustments: h.money(b.TotalAdjustments),
		Transactions:     b.Transactions,
	}
}

func (h *Handler) balances(bs []ledger.Balance) []balanceView {
	out := make([]balanceView, 0, len(bs))
	for _, b := range bs {
		out = append(out, h.balance(b))
	}
	return out
}

type componentView struct {
	Label    string                    `json:"label"`
	Kind     sessioncost.ComponentKind `json:"kind"`
	Rate     moneyView                 `json:"rate"`
	Quantity string                    `json:"quantity"`
	Cost     moneyView                 `json:"cost"`
}

type splitView struct {
	Components       []componentView `json:"components"`
	Total            moneyView       `json:"total"`
	ParticipantCount int             `json:"participant_count"`
	Share            moneyView       `json:"share"`
	RateCardVersion  int             `json:"rate_card_version,omitempty"`
}

func (h *Handler) components(cs []sessioncost.ComponentCost) []componentView {
	out := make([]componentView, 0, len(cs))
	for _, c := range cs {
		out = append(out, componentView{
			Label:    c.Label,
			Kind:     c.Kind,
			Rate:     h.money(c.Rate),
			Quantity: c.Quantity.Exact(),
			Cost:     h.money(c.Cost),
		})
	}
	return out
}

func (h *Handler) split(res sessioncost.Result) splitView {
	v := splitView{
		Components:       h.components(res.Components()),
		Total:            h.money(res.Total()),
		ParticipantCount: res.ParticipantCount(),
		Share:            h.money(res.Share()),
	}
	if card, ok := res.RateCard(); ok {
		v.RateCardVersion = card.Version
	}
	return v
}

type sessionView struct {
	ID          uuid.UUID   `json:"id"`
	PlayedOn    time.Time   `json:"played_on"`
	Attendees   []uuid.UUID `json:"attendees"`
	Notes       string      `json:"notes,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`
	splitView
}

func (h *Handler) session(rec SessionRecord) sessionView {
	return sessionView{
		ID:          rec.ID,
		PlayedOn:    rec.PlayedOn,
		Attendees:   rec.Attendees,
		Notes:       rec.Notes,
		CompletedAt: rec.CompletedAt,
		splitView: splitView{
			Components:       h.components(rec.Components),
			Total:            h.money(rec.Total),
			ParticipantCount: rec.ParticipantCount,
			Share:            h.money(rec.Share),
			RateCardVersion:  rec.RateCardVersion,
		},
	}
}

type rateCardView struct {
	Version         int       `json:"version"`
	EffectiveFrom   time.Time `json:"effective_from"`
	CourtHourly     moneyView `json:"court_hourly"`
	ShuttlecockUnit moneyView `json:"shuttlecock_unit"`
}

func (h *Handler) rateCard(c sessioncost.RateCard) rateCardView {
	return rateCardView{
		Version:         c.Version,
		EffectiveFrom:   c.EffectiveFrom,
		CourtHourly:     h.money(c.CourtHourly),
		ShuttlecockUnit: h.money(c.ShuttlecockUnit),
	}
}

type transactionView struct {
	ID        uuid.UUID     `json:"id"`
	Kind      ledger.Kind   `json:"kind"`
	Amount    moneyView     `json:"amount"`
	Date      time.Time     `json:"date"`
	SessionID *uuid.UUID    `json:"session_id,omitempty"`
	Method    ledger.Method `json:"method,omitempty"`
	Reference string        `json:"reference,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

func (h *Handler) transaction(t ledger.Transaction) transactionView {
	v := transactionView{
		ID:        t.ID,
		Kind:      t.Kind,
		Amount:    h.money(t.Amount),
		Date:      t.Date,
		Method:    t.Method,
		Reference: t.Reference,
		Reason:    t.Reason,
	}
	if t.SessionID != uuid.Nil {
		id := t.SessionID
		v.SessionID = &id
	}
	return v
}

type trendPointView struct {
	Date           time.Time       `json:"date"`
	RunningBalance moneyView       `json:"running_balance"`
	Delta          moneyView       `json:"delta"`
	Transaction    transactionView `json:"transaction"`
}

type impactView struct {
	Payment        moneyView   `json:"payment"`
	Before         balanceView `json:"before"`
	NewBalance     moneyView   `json:"new_balance"`
	IsFullySettled bool        `json:"is_fully_settled"`
	RemainingDebt  moneyView   `json:"remaining_debt"`
	Overpayment    moneyView   `json:"overpayment"`
}

type suggestionsView struct {
	Exact     moneyView  `json:"exact"`
	RoundedUp *moneyView `json:"rounded_up,omitempty"`
	Half      *moneyView `json:"half,omitempty"`
}

type summaryView struct {
	TotalDebt   moneyView `json:"total_debt"`
	TotalCredit moneyView `json:"total_credit"`
	NetBalance  moneyView `json:"net_balance"`
	Debtors     int       `json:"debtors"`
	Creditors   int       `json:"creditors"`
	Settled     int       `json:"settled"`
}

type groupsView struct {
	Debtors   []balanceView `json:"debtors"`
	Creditors []balanceView `json:"creditors"`
	Settled   []balanceView `json:"settled"`
}
