package club

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapInsertError(t *testing.T) {
	other := errors.New("connection reset")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"payment reference", &pgconn.PgError{Code: "23505", ConstraintName: paymentReferenceConstraint}, ErrDuplicatePayment},
		{"rate card version", &pgconn.PgError{Code: "23505", ConstraintName: rateCardVersionConstraint}, ErrRateCardConflict},
		{"other unique index", &pgconn.PgError{Code: "23505", ConstraintName: "participants_pkey"}, nil},
		{"not a unique violation", &pgconn.PgError{Code: "40P01", ConstraintName: rateCardVersionConstraint}, nil},
		{"plain error", other, other},
		{"nil", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapInsertError(tc.in)
			if tc.want == nil {
				assert.Equal(t, tc.in, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestClassifyRateCardConflictAsDuplicate(t *testing.T) {
	err := classify(ErrRateCardConflict)
	assert.ErrorIs(t, err, ErrRateCardConflict)
	assert.Contains(t, err.Error(), "already published")
}
