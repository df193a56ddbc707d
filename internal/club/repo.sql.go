package club

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtshare/courtshare/internal/ledger"
	"github.com/courtshare/courtshare/internal/platform/db"
	"github.com/courtshare/courtshare/internal/sessioncost"
)

const (
	paymentReferenceConstraint = "uq_ledger_payment_reference"
	rateCardVersionConstraint  = "rate_cards_pkey"
)

// Repository persists club entities in PostgreSQL. Money columns hold the
// exact text form so non-terminating shares survive a round trip.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *txRepo) InsertParticipant(ctx context.Context, p Participant) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO participants (id, name, active, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Active, p.CreatedAt)
	return err
}

func (r *txRepo) GetParticipant(ctx context.Context, id uuid.UUID) (Participant, error) {
	return r.participant(ctx, `SELECT id, name, active, created_at FROM participants WHERE id = $1`, id)
}

func (r *txRepo) LockParticipant(ctx context.Context, id uuid.UUID) (Participant, error) {
	return r.participant(ctx, `SELECT id, name, active, created_at FROM participants WHERE id = $1 FOR UPDATE`, id)
}

func (r *txRepo) participant(ctx context.Context, query string, id uuid.UUID) (Participant, error) {
	var p Participant
	err := r.tx.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	return p, err
}

func (r *txRepo) ListParticipants(ctx context.Context) ([]Participant, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, name, active, created_at FROM participants ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LockRateCards serializes publishers. It must run before the first query of
// the transaction so the snapshot includes the previous publish.
func (r *txRepo) LockRateCards(ctx context.Context) error {
	_, err := r.tx.Exec(ctx, `LOCK TABLE rate_cards IN SHARE ROW EXCLUSIVE MODE`)
	return err
}

func (r *txRepo) InsertRateCard(ctx context.Context, card sessioncost.RateCard) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO rate_cards (version, effective_from, court_hourly, shuttlecock_unit) VALUES ($1, $2, $3, $4)`,
		card.Version, card.EffectiveFrom, card.CourtHourly, card.ShuttlecockUnit)
	return mapInsertError(err)
}

func (r *txRepo) ListRateCards(ctx context.Context) (sessioncost.RateCards, error) {
	rows, err := r.tx.Query(ctx, `SELECT version, effective_from, court_hourly, shuttlecock_unit FROM rate_cards ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards sessioncost.RateCards
	for rows.Next() {
		var c sessioncost.RateCard
		if err := rows.Scan(&c.Version, &c.EffectiveFrom, &c.CourtHourly, &c.ShuttlecockUnit); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *txRepo) InsertSession(ctx context.Context, rec SessionRecord) error {
	components, err := json.Marshal(rec.Components)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO sessions (id, played_on, rate_card_version, components, total, participant_count, share, attendees, notes, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.PlayedOn, rec.RateCardVersion, components, rec.Total, rec.ParticipantCount, rec.Share, rec.Attendees, rec.Notes, rec.CompletedAt)
	return err
}

func (r *txRepo) GetSession(ctx context.Context, id uuid.UUID) (SessionRecord, error) {
	var (
		rec        SessionRecord
		components []byte
	)
	err := r.tx.QueryRow(ctx, `SELECT id, played_on, rate_card_version, components, total, participant_count, share, attendees, notes, completed_at
FROM sessions WHERE id = $1`, id).Scan(&rec.ID, &rec.PlayedOn, &rec.RateCardVersion, &components, &rec.Total,
		&rec.ParticipantCount, &rec.Share, &rec.Attendees, &rec.Notes, &rec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return SessionRecord{}, err
	}
	if err := json.Unmarshal(components, &rec.Components); err != nil {
		return SessionRecord{}, fmt.Errorf("club: decode session components: %w", err)
	}
	return rec, nil
}

func (r *txRepo) InsertTransactions(ctx context.Context, txns []ledger.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range txns {
		batch.Queue(`INSERT INTO ledger_transactions (id, participant_id, kind, amount, occurred_on, session_id, method, reference, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.ID, t.ParticipantID, string(t.Kind), t.Amount, t.Date,
			nullUUID(t.SessionID), nullString(string(t.Method)), nullString(t.Reference), nullString(t.Reason))
	}
	results := r.tx.SendBatch(ctx, batch)
	for range txns {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return mapInsertError(err)
		}
	}
	return results.Close()
}

func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case paymentReferenceConstraint:
		return ErrDuplicatePayment
	case rateCardVersionConstraint:
		return ErrRateCardConflict
	}
	return err
}

const transactionColumns = `id, participant_id, kind, amount, occurred_on, session_id, COALESCE(method, ''), COALESCE(reference, ''), COALESCE(reason, '')`

func (r *txRepo) ListTransactions(ctx context.Context, participantID uuid.UUID) ([]ledger.Transaction, error) {
	return r.transactions(ctx, `SELECT `+transactionColumns+` FROM ledger_transactions WHERE participant_id = $1 ORDER BY occurred_on, seq`, participantID)
}

func (r *txRepo) ListAllTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return r.transactions(ctx, `SELECT `+transactionColumns+` FROM ledger_transactions ORDER BY participant_id, occurred_on, seq`)
}

func (r *txRepo) transactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Transaction
	for rows.Next() {
		var (
			t       ledger.Transaction
			kind    string
			method  string
			session pgtype.UUID
		)
		if err := rows.Scan(&t.ID, &t.ParticipantID, &kind, &t.Amount, &t.Date, &session, &method, &t.Reference, &t.Reason); err != nil {
			return nil, err
		}
		t.Kind = ledger.Kind(kind)
		t.Method = ledger.Method(method)
		if session.Valid {
			t.SessionID = uuid.UUID(session.Bytes)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
