// Package money provides the exact monetary value used throughout the ledger.
//
// Money never passes through binary floating point. Values are held as exact
// rationals, so a session total divided among attendees and summed back
// reproduces the total without drift. Rounding only happens when a caller asks
// for it explicitly through RoundTo or Format.
package money

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates monetary input that is not a finite decimal numeral.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrDivisionByZero indicates a zero divisor.
	ErrDivisionByZero = errors.New("money: division by zero")
	// ErrInvalidIncrement indicates a rounding increment that is not positive.
	ErrInvalidIncrement = errors.New("money: rounding increment must be positive")
)

// Money is an immutable exact amount. The zero value is zero.
//
// Use Equal or Cmp to compare values; the == operator compares internal
// pointers and is meaningless.
type Money struct {
	r *big.Rat
}

// Zero is the additive identity.
var Zero = Money{}

// Ordering is the result of comparing two amounts.
type Ordering int

const (
	LessThan    Ordering = -1
	Equal       Ordering = 0
	GreaterThan Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case LessThan:
		return "LessThan"
	case GreaterThan:
		return "GreaterThan"
	default:
		return "Equal"
	}
}

func (m Money) rat() *big.Rat {
	if m.r == nil {
		return new(big.Rat)
	}
	return m.r
}

func fromRat(r *big.Rat) Money {
	return Money{r: r}
}

// FromInt builds a whole amount.
func FromInt(n int64) Money {
	return fromRat(new(big.Rat).SetInt64(n))
}

// FromMinor builds an amount from minor units, e.g. FromMinor(1050, 2) is 10.50.
func FromMinor(units int64, places int32) Money {
	return FromDecimal(decimal.New(units, -places))
}

// FromDecimal converts a decimal.Decimal without loss.
func FromDecimal(d decimal.Decimal) Money {
	return fromRat(d.Rat())
}

// FromFloat converts a float using its shortest decimal representation, so
// FromFloat(0.1) is exactly one tenth. NaN and infinities are rejected.
func FromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return FromDecimal(decimal.NewFromFloat(f)), nil
}

// Sum adds all amounts.
func Sum(values ...Money) Money {
	total := new(big.Rat)
	for _, v := range values {
		total.Add(total, v.rat())
	}
	return fromRat(total)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return fromRat(new(big.Rat).Add(m.rat(), o.rat()))
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return fromRat(new(big.Rat).Sub(m.rat(), o.rat()))
}

// Mul returns m * o.
func (m Money) Mul(o Money) Money {
	return fromRat(new(big.Rat).Mul(m.rat(), o.rat()))
}

// MulInt returns m * n.
func (m Money) MulInt(n int64) Money {
	return m.Mul(FromInt(n))
}

// Div returns the exact quotient m / o.
func (m Money) Div(o Money) (Money, error) {
	if o.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return fromRat(new(big.Rat).Quo(m.rat(), o.rat())), nil
}

// DivInt returns the exact quotient m / n.
func (m Money) DivInt(n int64) (Money, error) {
	return m.Div(FromInt(n))
}

// Neg returns -m.
func (m Money) Neg() Money {
	return fromRat(new(big.Rat).Neg(m.rat()))
}

// Abs returns |m|.
func (m Money) Abs() Money {
	return fromRat(new(big.Rat).Abs(m.rat()))
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	return m.rat().Sign()
}

func (m Money) IsZero() bool     { return m.Sign() == 0 }
func (m Money) IsPositive() bool { return m.Sign() > 0 }
func (m Money) IsNegative() bool { return m.Sign() < 0 }

// Cmp orders m against o on exact value.
func (m Money) Cmp(o Money) Ordering {
	return Ordering(m.rat().Cmp(o.rat()))
}

// Compare orders a against b.
func Compare(a, b Money) Ordering {
	return a.Cmp(b)
}

// Equal reports exact equality.
func (m Money) Equal(o Money) bool {
	return m.Cmp(o) == Equal
}

func (m Money) LessThan(o Money) bool    { return m.Cmp(o) == LessThan }
func (m Money) GreaterThan(o Money) bool { return m.Cmp(o) == GreaterThan }

// Max returns the larger amount.
func Max(a, b Money) Money {
	if a.LessThan(b) {
		return b
	}
	return a
}

// Min returns the smaller amount.
func Min(a, b Money) Money {
	if b.LessThan(a) {
		return b
	}
	return a
}

// IsTerminating reports whether m has a finite decimal expansion.
func (m Money) IsTerminating() bool {
	_, ok := decimalPlaces(m.rat())
	return ok
}

// Decimal returns m as a decimal.Decimal. Non-terminating values are rounded
// half-up to the given number of places; terminating values are exact.
func (m Money) Decimal(places int32) decimal.Decimal {
	r := m.rat()
	if exp, ok := decimalPlaces(r); ok {
		return toDecimal(r, exp)
	}
	return toDecimal(m.RoundTo(places).rat(), places)
}

// decimalPlaces returns the number of fraction digits needed to write r
// exactly, or false when the expansion does not terminate.
func decimalPlaces(r *big.Rat) (int32, bool) {
	den := new(big.Int).Set(r.Denom())
	twos := den.TrailingZeroBits()
	den.Rsh(den, twos)
	den, fives := stripFives(den)
	if den.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	if twos > fives {
		return int32(twos), true
	}
	return int32(fives), true
}

// stripFives divides every factor of 5 out of n using 5^(2^i) chunks, so the
// number of big-integer divisions is logarithmic in the exponent.
func stripFives(n *big.Int) (*big.Int, uint) {
	var count uint
	powers := []*big.Int{big.NewInt(5)}
	q, rem := new(big.Int), new(big.Int)
	for {
		p := powers[len(powers)-1]
		if p.Cmp(n) > 0 {
			break
		}
		q.QuoRem(n, p, rem)
		if rem.Sign() != 0 {
			break
		}
		n.Set(q)
		count += 1 << (len(powers) - 1)
		powers = append(powers, new(big.Int).Mul(p, p))
	}
	for i := len(powers) - 1; i >= 0; i-- {
		for powers[i].Cmp(n) <= 0 {
			q.QuoRem(n, powers[i], rem)
			if rem.Sign() != 0 {
				break
			}
			n.Set(q)
			count += 1 << i
		}
	}
	return n, count
}

// toDecimal renders r, which must be a whole multiple of 10^-places.
func toDecimal(r *big.Rat, places int32) decimal.Decimal {
	if places < 0 {
		places = 0
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(pow10(places)))
	return decimal.NewFromBigInt(new(big.Int).Quo(scaled.Num(), scaled.Denom()), -places)
}

func pow10(n int32) *big.Int {
	if n < 0 {
		n = -n
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
