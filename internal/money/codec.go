package money

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Exact returns a lossless text form: a plain decimal ("8.75") when the
// expansion terminates, otherwise a reduced fraction ("10/3").
func (m Money) Exact() string {
	r := m.rat()
	if places, ok := decimalPlaces(r); ok {
		return toDecimal(r, places).String()
	}
	return r.RatString()
}

// String implements fmt.Stringer with the exact form.
func (m Money) String() string {
	return m.Exact()
}

// maxExactDigits bounds each side of the stored "num/den" form.
const maxExactDigits = 128

// ParseExact reads the output of Exact. Unlike Parse it accepts no currency
// symbols or separators. It is meant for stored values, not user input.
func ParseExact(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2*maxExactDigits+2 {
		return Money{}, fmt.Errorf("%w: exact form longer than %d digits", ErrInvalidAmount, maxExactDigits)
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		if len(num) > maxExactDigits+1 || len(den) > maxExactDigits {
			return Money{}, fmt.Errorf("%w: exact form longer than %d digits", ErrInvalidAmount, maxExactDigits)
		}
		n, okN := new(big.Int).SetString(num, 10)
		d, okD := new(big.Int).SetString(den, 10)
		if !okN || !okD {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		if d.Sign() == 0 {
			return Money{}, ErrDivisionByZero
		}
		return fromRat(new(big.Rat).SetFrac(n, d)), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d), nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.Exact()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Money) UnmarshalText(text []byte) error {
	v, err := ParseExact(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalJSON encodes the exact form as a JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Exact())
}

// UnmarshalJSON accepts a JSON string in exact form or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return m.UnmarshalText([]byte(s))
	}
	return m.UnmarshalText(data)
}

// Value implements driver.Valuer; amounts are stored in their exact text form.
func (m Money) Value() (driver.Value, error) {
	return m.Exact(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		return m.UnmarshalText([]byte(v))
	case []byte:
		return m.UnmarshalText(v)
	case int64:
		*m = FromInt(v)
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}
