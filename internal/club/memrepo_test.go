package club

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

// memRepo is an in-memory RepositoryPort. WithTx holds a single lock and
// restores the previous state when the callback fails.
type memRepo struct {
	mu    sync.Mutex
	state memState
	txs   int
}

type memState struct {
	participants map[uuid.UUID]Participant
	cards        sessioncost.RateCards
	sessions     map[uuid.UUID]SessionRecord
	txns         []ledger.Transaction
	locked       []uuid.UUID
	cardLocks    int
}

func newMemRepo() *memRepo {
	return &memRepo{state: memState{
		participants: map[uuid.UUID]Participant{},
		sessions:     map[uuid.UUID]SessionRecord{},
	}}
}

func (s memState) clone() memState {
	return memState{
		participants: maps.Clone(s.participants),
		cards:        slices.Clone(s.cards),
		sessions:     maps.Clone(s.sessions),
		txns:         slices.Clone(s.txns),
		locked:       slices.Clone(s.locked),
		cardLocks:    s.cardLocks,
	}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs++
	saved := r.state.clone()
	if err := fn(ctx, &memTx{s: &r.state}); err != nil {
		r.state = saved
		return err
	}
	return nil
}

func (r *memRepo) snapshot() memState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

func (r *memRepo) transactionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txs
}

type memTx struct {
	s *memState
}

func (t *memTx) InsertParticipant(_ context.Context, p Participant) error {
	t.s.participants[p.ID] = p
	return nil
}

func (t *memTx) GetParticipant(_ context.Context, id uuid.UUID) (Participant, error) {
	p, ok := t.s.participants[id]
	if !ok {
		return Participant{}, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	return p, nil
}

func (t *memTx) LockParticipant(ctx context.Context, id uuid.UUID) (Participant, error) {
	t.s.locked = append(t.s.locked, id)
	return t.GetParticipant(ctx, id)
}

func (t *memTx) LockRateCards(context.Context) error {
	t.s.cardLocks++
	return nil
}

func (t *memTx) ListParticipants(context.Context) ([]Participant, error) {
	out := slices.Collect(maps.Values(t.s.participants))
	slices.SortFunc(out, func(a, b Participant) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (t *memTx) InsertRateCard(_ context.Context, card sessioncost.RateCard) error {
	t.s.cards = append(t.s.cards, card)
	return nil
}

func (t *memTx) ListRateCards(context.Context) (sessioncost.RateCards, error) {
	return slices.Clone(t.s.cards), nil
}

func (t *memTx) InsertSession(_ context.Context, rec SessionRecord) error {
	t.s.sessions[rec.ID] = rec
	return nil
}

func (t *memTx) GetSession(_ context.Context, id uuid.UUID) (SessionRecord, error) {
	rec, ok := t.s.sessions[id]
	if !ok {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return rec, nil
}

func (t *memTx) InsertTransactions(_ context.Context, txns []ledger.Transaction) error {
	for _, n := range txns {
		if n.Kind != ledger.KindCredit || n.Reference == "" {
			continue
		}
		for _, existing := range t.s.txns {
			if existing.Kind == ledger.KindCredit && existing.ParticipantID == n.ParticipantID && existing.Reference == n.Reference {
				return ErrDuplicatePayment
			}
		}
	}
	t.s.txns = append(t.s.txns, txns...)
	return nil
}

func (t *memTx) ListTransactions(_ context.Context, participantID uuid.UUID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, n := range t.s.txns {
		if n.ParticipantID == participantID {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b ledger.Transaction) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (t *memTx) ListAllTransactions(context.Context) ([]ledger.Transaction, error) {
	return slices.Clone(t.s.txns), nil
}
