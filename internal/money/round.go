package money

import (
	"fmt"
	"math/big"
)

// RoundingMode selects how a value between two representable amounts is resolved.
type RoundingMode int

const (
	// HalfUp rounds to nearest, ties away from zero (10.555 -> 10.56, -10.555 -> -10.56).
	HalfUp RoundingMode = iota
	// HalfEven rounds to nearest, ties to the even neighbour.
	HalfEven
	// Up rounds away from zero.
	Up
	// Down truncates toward zero.
	Down
	// Ceiling rounds toward positive infinity.
	Ceiling
	// Floor rounds toward negative infinity.
	Floor
)

func (m RoundingMode) String() string {
	switch m {
	case HalfUp:
		return "HalfUp"
	case HalfEven:
		return "HalfEven"
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Ceiling:
		return "Ceiling"
	case Floor:
		return "Floor"
	default:
		return fmt.Sprintf("RoundingMode(%d)", int(m))
	}
}

// RoundTo rounds half-up to the given number of decimal places. Negative
// places round to tens, hundreds and so on.
func (m Money) RoundTo(places int32) Money {
	return m.RoundWith(places, HalfUp)
}

// RoundWith rounds to the given number of decimal places using mode.
func (m Money) RoundWith(places int32, mode RoundingMode) Money {
	unit := new(big.Rat).SetInt(pow10(places))
	if places > 0 {
		unit.Inv(unit)
	}
	return fromRat(roundToStep(m.rat(), unit, mode))
}

// RoundToIncrement rounds to a whole multiple of step, e.g. step 5 with
// Ceiling turns 7.20 into 10.
func (m Money) RoundToIncrement(step Money, mode RoundingMode) (Money, error) {
	if !step.IsPositive() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidIncrement, step)
	}
	return fromRat(roundToStep(m.rat(), step.rat(), mode)), nil
}

func roundToStep(value, step *big.Rat, mode RoundingMode) *big.Rat {
	q := new(big.Rat).Quo(value, step)
	n := roundQuotient(q, mode)
	return new(big.Rat).Mul(new(big.Rat).SetInt(n), step)
}

// roundQuotient rounds q to an integer. Rat denominators are always positive.
func roundQuotient(q *big.Rat, mode RoundingMode) *big.Int {
	num, den := q.Num(), q.Denom()
	trunc, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() == 0 {
		return trunc
	}
	away := big.NewInt(int64(num.Sign()))
	awayFromZero := func() *big.Int { return trunc.Add(trunc, away) }

	switch mode {
	case Down:
		return trunc
	case Up:
		return awayFromZero()
	case Ceiling:
		if num.Sign() > 0 {
			return awayFromZero()
		}
		return trunc
	case Floor:
		if num.Sign() < 0 {
			return awayFromZero()
		}
		return trunc
	}

	twice := new(big.Int).Abs(rem)
	twice.Lsh(twice, 1)
	switch twice.Cmp(den) {
	case 1:
		return awayFromZero()
	case -1:
		return trunc
	}
	if mode == HalfEven && trunc.Bit(0) == 0 {
		return trunc
	}
	return awayFromZero()
}
