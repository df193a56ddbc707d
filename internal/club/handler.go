package club

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/money"
	"github.com/courtshare/courtshare/internal/platform/httpx"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

// Handler exposes the club ledger as a JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	format    money.FormatOptions
}

// NewHandler constructs a Handler. Display strings use format.
func NewHandler(logger *slog.Logger, service *Service, format money.FormatOptions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		format:    format,
	}
}

// MountRoutes registers club routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/participants", func(r chi.Router) {
		r.Get("/", h.listParticipants)
		r.Post("/", h.registerParticipant)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/balance", h.getBalance)
			r.Get("/trend", h.getTrend)
			r.Get("/payment-preview", h.previewPayment)
			r.Get("/suggestions", h.getSuggestions)
			r.Post("/payments", h.recordPayment)
			r.Post("/adjustments", h.recordAdjustment)
		})
	})
	r.Route("/rate-cards", func(r chi.Router) {
		r.Get("/", h.listRateCards)
		r.Post("/", h.publishRateCard)
	})
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.completeSession)
		r.Post("/quote", h.quoteSession)
		r.Get("/{id}", h.getSession)
	})
	r.Route("/balances", func(r chi.Router) {
		r.Get("/", h.listBalances)
		r.Get("/summary", h.getSummary)
		r.Get("/groups", h.getGroups)
	})
}

func (h *Handler) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.RegisterParticipant(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.ListParticipants(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if participants == nil {
		participants = []Participant{}
	}
	httpx.JSON(w, http.StatusOK, participants)
}

func (h *Handler) publishRateCard(w http.ResponseWriter, r *http.Request) {
	var req rateCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	card, err := h.service.PublishRateCard(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("rate card published", slog.Int("version", card.Version), slog.Time("effective_from", card.EffectiveFrom))
	httpx.JSON(w, http.StatusCreated, h.rateCard(card))
}

func (h *Handler) listRateCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.RateCards(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]rateCardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, h.rateCard(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) quoteSession(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	playedOn, usage, err := req.toUsage()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.QuoteSession(r.Context(), playedOn, usage, req.Participants)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.split(res))
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.service.CompleteSession(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("session completed",
		slog.String("session_id", rec.ID.String()),
		slog.Int("attendees", rec.ParticipantCount),
		slog.String("total", rec.Total.Exact()),
		slog.String("share", rec.Share.Exact()))
	httpx.JSON(w, http.StatusCreated, h.session(rec))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Session(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.session(rec))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	credit, err := h.service.RecordPayment(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("payment recorded", slog.String("participant_id", id.String()), slog.String("amount", credit.Amount.Exact()))
	httpx.JSON(w, http.StatusCreated, h.transaction(credit))
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req adjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	adj, err := h.service.RecordAdjustment(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("adjustment recorded", slog.String("participant_id", id.String()), slog.String("amount", adj.Amount.Exact()))
	httpx.JSON(w, http.StatusCreated, h.transaction(adj))
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.loadBalance(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.balance(b))
}

func (h *Handler) loadBalance(ctx context.Context, id uuid.UUID) (ledger.Balance, error) {
	val, err, _ := singleflightRead(ctx, "balance:"+id.String(), func(ctx context.Context) (any, error) {
		return h.service.Balance(ctx, id)
	})
	if err != nil {
		return ledger.Balance{}, err
	}
	return val.(ledger.Balance), nil
}

func (h *Handler) getTrend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	points, err := h.service.Trend(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]trendPointView, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointView{
			Date:           p.Date,
			RunningBalance: h.money(p.RunningBalance),
			Delta:          h.money(p.Delta),
			Transaction:    h.transaction(p.Transaction),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) previewPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	amt, err := amount("amount", r.URL.Query().Get("amount"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	impact, err := h.service.PreviewPayment(r.Context(), id, amt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, impactView{
		Payment:        h.money(impact.Payment),
		Before:         h.balance(impact.Before),
		NewBalance:     h.money(impact.NewBalance),
		IsFullySettled: impact.IsFullySettled,
		RemainingDebt:  h.money(impact.RemainingDebt),
		Overpayment:    h.money(impact.Overpayment),
	})
}

func (h *Handler) getSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	s, err := h.service.Suggestions(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suggestionsView{
		Exact:     h.money(s.Exact),
		RoundedUp: h.optionalMoney(s.RoundedUp),
		Half:      h.optionalMoney(s.Half),
	})
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.loadBalances(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.balances(balances))
}

func (h *Handler) loadBalances(ctx context.Context) ([]ledger.Balance, error) {
	val, err, _ := singleflightRead(ctx, "balances", func(ctx context.Context) (any, error) {
		return h.service.Balances(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]ledger.Balance), nil
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	balances, err := h.loadBalances(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s := ledger.SummarizeGroup(balances)
	httpx.JSON(w, http.StatusOK, summaryView{
		TotalDebt:   h.money(s.TotalDebt),
		TotalCredit: h.money(s.TotalCredit),
		NetBalance:  h.money(s.NetBalance),
		Debtors:     s.Debtors,
		Creditors:   s.Creditors,
		Settled:     s.Settled,
	})
}

func (h *Handler) getGroups(w http.ResponseWriter, r *http.Request) {
	balances, err := h.loadBalances(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	g := ledger.GroupByStatus(balances)
	httpx.JSON(w, http.StatusOK, groupsView{
		Debtors:   h.balances(g.Debtors),
		Creditors: h.balances(g.Creditors),
		Settled:   h.balances(g.Settled),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs[0].Error())
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	classifiedErr := classify(err)
	if !errors.Is(classifiedErr, httpx.ErrNotFound) &&
		!errors.Is(classifiedErr, httpx.ErrDuplicate) &&
		!errors.Is(classifiedErr, httpx.ErrValidation) &&
		!errors.Is(classifiedErr, httpx.ErrUnprocessable) {
		h.logger.Error("club request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, classifiedErr)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrParticipantNotFound), errors.Is(err, ErrSessionNotFound):
		return httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicatePayment), errors.Is(err, ErrRateCardConflict):
		return httpx.Classify(httpx.ErrDuplicate, err)
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrDuplicateAttendee),
		errors.Is(err, ErrSessionDateRequired),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrDivisionByZero),
		errors.Is(err, ledger.ErrNonPositivePayment),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrReasonRequired),
		errors.Is(err, ledger.ErrDateRequired),
		errors.Is(err, sessioncost.ErrNoParticipants),
		errors.Is(err, sessioncost.ErrNegativeInput),
		errors.Is(err, sessioncost.ErrInvalidRateCard):
		return httpx.Classify(httpx.ErrValidation, err)
	case errors.Is(err, ErrInactiveParticipant),
		errors.Is(err, ledger.ErrNotInDebt),
		errors.Is(err, sessioncost.ErrNoRateCard):
		return httpx.Classify(httpx.ErrUnprocessable, err)
	default:
		return err
	}
}
