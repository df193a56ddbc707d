// Package club runs the cost-sharing ledger for a group: it prices completed
// sessions, records payments and corrections, and serves balances.
package club

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/money"
	"github.com/courtshare/courtshare/internal/platform/cache"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

const warmLimit = 4

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside one transaction.
type TxRepository interface {
	InsertParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, id uuid.UUID) (Participant, error)
	LockParticipant(ctx context.Context, id uuid.UUID) (Participant, error)
	ListParticipants(ctx context.Context) ([]Participant, error)
	LockRateCards(ctx context.Context) error
	InsertRateCard(ctx context.Context, card sessioncost.RateCard) error
	ListRateCards(ctx context.Context) (sessioncost.RateCards, error)
	InsertSession(ctx context.Context, rec SessionRecord) error
	GetSession(ctx context.Context, id uuid.UUID) (SessionRecord, error)
	InsertTransactions(ctx context.Context, txns []ledger.Transaction) error
	ListTransactions(ctx context.Context, participantID uuid.UUID) ([]ledger.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]ledger.Transaction, error)
}

// Enqueuer schedules background balance warm-ups.
type Enqueuer interface {
	EnqueueBalanceWarmup(ctx context.Context, participantIDs []uuid.UUID) error
}

// Recorder receives ledger activity counters.
type Recorder interface {
	LedgerEntries(kind string, n int)
	BalanceLookup(hit bool)
}

type noopRecorder struct{}

func (noopRecorder) LedgerEntries(string, int) {}
func (noopRecorder) BalanceLookup(bool)        {}

// Service coordinates the ledger core with storage and cache.
type Service struct {
	repo     RepositoryPort
	cache    *cache.Versioned
	enqueuer Enqueuer
	metrics  Recorder
	now      func() time.Time
}

// NewService constructs the club service. cache and enqueuer may be nil.
func NewService(repo RepositoryPort, c *cache.Versioned, enqueuer Enqueuer) *Service {
	return &Service{repo: repo, cache: c, enqueuer: enqueuer, metrics: noopRecorder{}, now: time.Now}
}

// WithMetrics attaches a recorder for ledger activity.
func (s *Service) WithMetrics(r Recorder) {
	if r != nil {
		s.metrics = r
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterParticipant adds a member.
func (s *Service) RegisterParticipant(ctx context.Context, name string) (Participant, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Participant{}, err
	}
	p := Participant{ID: uuid.New(), Name: name, Active: true, CreatedAt: s.now().UTC()}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertParticipant(ctx, p)
	})
	if err != nil {
		return Participant{}, err
	}
	s.invalidate(ctx, p.ID)
	return p, nil
}

// ListParticipants returns all members.
func (s *Service) ListParticipants(ctx context.Context) ([]Participant, error) {
	var out []Participant
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListParticipants(ctx)
		return err
	})
	return out, err
}

// PublishRateCard stores the next rate card version. Earlier versions, and
// every session priced with them, are left untouched.
func (s *Service) PublishRateCard(ctx context.Context, in PublishRateCardInput) (sessioncost.RateCard, error) {
	var card sessioncost.RateCard
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockRateCards(ctx); err != nil {
			return err
		}
		cards, err := tx.ListRateCards(ctx)
		if err != nil {
			return err
		}
		next := 1
		for _, c := range cards {
			if c.Version >= next {
				next = c.Version + 1
			}
		}
		card = sessioncost.RateCard{
			Version:         next,
			EffectiveFrom:   in.EffectiveFrom.UTC(),
			CourtHourly:     in.CourtHourly,
			ShuttlecockUnit: in.ShuttlecockUnit,
		}
		if err := card.Validate(); err != nil {
			return err
		}
		return tx.InsertRateCard(ctx, card)
	})
	if err != nil {
		return sessioncost.RateCard{}, err
	}
	return card, nil
}

// RateCards lists the published rate card history.
func (s *Service) RateCards(ctx context.Context) (sessioncost.RateCards, error) {
	var cards sessioncost.RateCards
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		cards, err = tx.ListRateCards(ctx)
		return err
	})
	return cards, err
}

// QuoteSession prices usage with the rate card in force at playedOn without
// storing anything.
func (s *Service) QuoteSession(ctx context.Context, playedOn time.Time, usage sessioncost.SessionUsage, participantCount int) (sessioncost.Result, error) {
	var res sessioncost.Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cards, err := tx.ListRateCards(ctx)
		if err != nil {
			return err
		}
		card, err := cards.At(playedOn)
		if err != nil {
			return err
		}
		res, err = card.Compute(usage, participantCount)
		return err
	})
	return res, err
}

// CompleteSession prices the session with the rate card in force on the play
// date, stores it, and charges each attendee the exact unrounded share.
func (s *Service) CompleteSession(ctx context.Context, in CompleteSessionInput) (SessionRecord, error) {
	if err := in.Validate(); err != nil {
		return SessionRecord{}, err
	}
	var rec SessionRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Rows are locked in id order so overlapping sessions cannot deadlock.
		for _, id := range lockOrder(in.Attendees) {
			p, err := tx.LockParticipant(ctx, id)
			if err != nil {
				return err
			}
			if !p.Active {
				return fmt.Errorf("%w: %s", ErrInactiveParticipant, p.Name)
			}
		}
		cards, err := tx.ListRateCards(ctx)
		if err != nil {
			return err
		}
		card, err := cards.At(in.PlayedOn)
		if err != nil {
			return err
		}
		res, err := card.Compute(in.Usage, len(in.Attendees))
		if err != nil {
			return err
		}
		rec = SessionRecord{
			ID:               uuid.New(),
			PlayedOn:         in.PlayedOn.UTC(),
			RateCardVersion:  card.Version,
			Components:       res.Components(),
			Total:            res.Total(),
			ParticipantCount: res.ParticipantCount(),
			Share:            res.Share(),
			Attendees:        append([]uuid.UUID(nil), in.Attendees...),
			Notes:            in.Notes,
			CompletedAt:      s.now().UTC(),
		}
		if err := tx.InsertSession(ctx, rec); err != nil {
			return err
		}
		debits := make([]ledger.Transaction, 0, len(in.Attendees))
		for _, id := range in.Attendees {
			debit, err := ledger.NewDebit(id, res.Share(), rec.PlayedOn, rec.ID)
			if err != nil {
				return err
			}
			debits = append(debits, debit)
		}
		return tx.InsertTransactions(ctx, debits)
	})
	if err != nil {
		return SessionRecord{}, err
	}
	s.metrics.LedgerEntries(string(ledger.KindDebit), len(rec.Attendees))
	s.invalidate(ctx, rec.Attendees...)
	return rec, nil
}

func lockOrder(ids []uuid.UUID) []uuid.UUID {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return sorted
}

// Session loads a stored session.
func (s *Service) Session(ctx context.Context, id uuid.UUID) (SessionRecord, error) {
	var rec SessionRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		rec, err = tx.GetSession(ctx, id)
		return err
	})
	return rec, err
}

// RecordPayment stores a credit. The participant row is locked for the
// duration so concurrent payments serialise.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (ledger.Transaction, error) {
	if !in.Amount.IsPositive() {
		return ledger.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrNonPositivePayment, in.Amount)
	}
	credit, err := ledger.NewCredit(in.ParticipantID, in.Amount, s.dateOrNow(in.Date), in.Method, in.Reference)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.appendTransaction(ctx, credit); err != nil {
		return ledger.Transaction{}, err
	}
	return credit, nil
}

// RecordAdjustment stores a signed correction with its reason.
func (s *Service) RecordAdjustment(ctx context.Context, in RecordAdjustmentInput) (ledger.Transaction, error) {
	adj, err := ledger.NewAdjustment(in.ParticipantID, in.Amount, s.dateOrNow(in.Date), in.Reason)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.appendTransaction(ctx, adj); err != nil {
		return ledger.Transaction{}, err
	}
	return adj, nil
}

func (s *Service) appendTransaction(ctx context.Context, t ledger.Transaction) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockParticipant(ctx, t.ParticipantID)
		if err != nil {
			return err
		}
		if !p.Active {
			return fmt.Errorf("%w: %s", ErrInactiveParticipant, p.Name)
		}
		return tx.InsertTransactions(ctx, []ledger.Transaction{t})
	})
	if err != nil {
		return err
	}
	s.metrics.LedgerEntries(string(t.Kind), 1)
	s.invalidate(ctx, t.ParticipantID)
	return nil
}

// Balance returns a participant's balance, served from cache when warm.
func (s *Service) Balance(ctx context.Context, participantID uuid.UUID) (ledger.Balance, error) {
	var (
		b      ledger.Balance
		loaded bool
	)
	err := s.fetchCached(ctx, &b, func(ctx context.Context) (any, error) {
		loaded = true
		return s.loadBalance(ctx, participantID)
	}, "ledger", "balance", participantID.String())
	if err != nil {
		return ledger.Balance{}, err
	}
	s.metrics.BalanceLookup(!loaded)
	return b, nil
}

func (s *Service) loadBalance(ctx context.Context, participantID uuid.UUID) (ledger.Balance, error) {
	var b ledger.Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetParticipant(ctx, participantID); err != nil {
			return err
		}
		txns, err := tx.ListTransactions(ctx, participantID)
		if err != nil {
			return err
		}
		b, err = ledger.ComputeBalance(participantID, txns)
		return err
	})
	return b, err
}

// Trend replays a participant's history into a running balance series.
func (s *Service) Trend(ctx context.Context, participantID uuid.UUID) ([]ledger.TrendPoint, error) {
	var points []ledger.TrendPoint
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetParticipant(ctx, participantID); err != nil {
			return err
		}
		txns, err := tx.ListTransactions(ctx, participantID)
		if err != nil {
			return err
		}
		points, err = ledger.ComputeTrend(txns)
		return err
	})
	return points, err
}

// Balances returns every participant's balance from one consistent snapshot.
func (s *Service) Balances(ctx context.Context) ([]ledger.Balance, error) {
	var out []ledger.Balance
	err := s.fetchCached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.loadBalances(ctx)
	}, "ledger", "balances")
	return out, err
}

func (s *Service) loadBalances(ctx context.Context) ([]ledger.Balance, error) {
	var out []ledger.Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		participants, err := tx.ListParticipants(ctx)
		if err != nil {
			return err
		}
		txns, err := tx.ListAllTransactions(ctx)
		if err != nil {
			return err
		}
		byParticipant := make(map[uuid.UUID][]ledger.Transaction, len(participants))
		for _, t := range txns {
			byParticipant[t.ParticipantID] = append(byParticipant[t.ParticipantID], t)
		}
		out = make([]ledger.Balance, 0, len(participants))
		for _, p := range participants {
			b, err := ledger.ComputeBalance(p.ID, byParticipant[p.ID])
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	return out, err
}

// GroupSummary totals debt and credit across the group.
func (s *Service) GroupSummary(ctx context.Context) (ledger.GroupSummary, error) {
	balances, err := s.Balances(ctx)
	if err != nil {
		return ledger.GroupSummary{}, err
	}
	return ledger.SummarizeGroup(balances), nil
}

// Groups partitions participants into debtors, creditors and settled.
func (s *Service) Groups(ctx context.Context) (ledger.Groups, error) {
	balances, err := s.Balances(ctx)
	if err != nil {
		return ledger.Groups{}, err
	}
	return ledger.GroupByStatus(balances), nil
}

// PreviewPayment shows the effect of a payment without recording it.
func (s *Service) PreviewPayment(ctx context.Context, participantID uuid.UUID, amount money.Money) (ledger.PaymentImpact, error) {
	if !amount.IsPositive() {
		return ledger.PaymentImpact{}, fmt.Errorf("%w: %s", ledger.ErrNonPositivePayment, amount)
	}
	b, err := s.Balance(ctx, participantID)
	if err != nil {
		return ledger.PaymentImpact{}, err
	}
	return ledger.ApplyPayment(b, amount)
}

// Suggestions proposes settlement amounts for a debtor.
func (s *Service) Suggestions(ctx context.Context, participantID uuid.UUID) (ledger.Suggestions, error) {
	b, err := s.Balance(ctx, participantID)
	if err != nil {
		return ledger.Suggestions{}, err
	}
	return ledger.SuggestSettlementAmounts(b)
}

// WarmBalances recomputes balances from storage and stores them in the cache,
// warmLimit participants at a time. Unknown participants are skipped.
func (s *Service) WarmBalances(ctx context.Context, participantIDs []uuid.UUID) (int, error) {
	var warmed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmLimit)
	for _, id := range participantIDs {
		g.Go(func() error {
			// Version the key before loading: a concurrent Bump must orphan the entry.
			key, err := s.cache.BuildKey(ctx, "ledger", "balance", id.String())
			if err != nil {
				return err
			}
			b, err := s.loadBalance(ctx, id)
			if errors.Is(err, ErrParticipantNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := s.cache.Store(ctx, key, b); err != nil {
				return err
			}
			warmed.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(warmed.Load()), err
}

// invalidate drops cached balances and schedules a warm-up; both are best effort.
func (s *Service) invalidate(ctx context.Context, participantIDs ...uuid.UUID) {
	_ = s.cache.Bump(ctx)
	if s.enqueuer != nil && len(participantIDs) > 0 {
		_ = s.enqueuer.EnqueueBalanceWarmup(ctx, participantIDs)
	}
}

// fetchCached reads through the versioned cache. Without a readable version
// there is no safe key, so the loader runs uncached.
func (s *Service) fetchCached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		var nocache *cache.Versioned
		return nocache.FetchJSON(ctx, "", dest, loader)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func (s *Service) dateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}
