package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the currency symbol used when FormatOptions.Symbol is empty.
const DefaultSymbol = "$"

// knownSymbols are stripped by Parse in addition to any caller supplied symbol.
var knownSymbols = []string{"$", "€", "£", "¥", "₹", "Rp"}

// MaxDigits bounds the digits Parse accepts, which keeps every later
// rendering of the value cheap.
const MaxDigits = 38

// groupSeparator is the English thousands separator as x/text renders it.
var groupSeparator = func() string {
	s := message.NewPrinter(language.English).Sprintf("%d", 1000)
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "000")
}()

var numeral = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)$`)

// FormatOptions controls Format output.
type FormatOptions struct {
	Symbol             string
	ShowCurrencySymbol bool
	ShowExplicitSign   bool
	Grouping           bool
	DecimalPlaces      int32
}

// DefaultFormat renders "$1,234.56".
func DefaultFormat() FormatOptions {
	return FormatOptions{
		Symbol:             DefaultSymbol,
		ShowCurrencySymbol: true,
		Grouping:           true,
		DecimalPlaces:      2,
	}
}

// Format rounds half-up to opts.DecimalPlaces and renders the result.
// A value that rounds to zero is printed without a sign.
func (m Money) Format(opts FormatOptions) string {
	places := opts.DecimalPlaces
	if places < 0 {
		places = 0
	}
	rounded := m.RoundTo(places)
	digits := toDecimal(rounded.Abs().rat(), places).StringFixed(places)
	intPart, frac, _ := strings.Cut(digits, ".")
	if opts.Grouping {
		intPart = group(intPart)
	}

	var b strings.Builder
	switch {
	case rounded.IsNegative():
		b.WriteByte('-')
	case rounded.IsPositive() && opts.ShowExplicitSign:
		b.WriteByte('+')
	}
	if opts.ShowCurrencySymbol {
		symbol := opts.Symbol
		if symbol == "" {
			symbol = DefaultSymbol
		}
		b.WriteString(symbol)
	}
	b.WriteString(intPart)
	if places > 0 {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatMoney renders m with DefaultFormat.
func FormatMoney(m Money) string {
	return m.Format(DefaultFormat())
}

// group inserts thousands separators into a run of digits of any length.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteString(groupSeparator)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Parse reads user input such as "12.50", "$1,250.00", "-$5" or "+3".
// Currency symbols, thousands separators and one leading sign are accepted;
// anything else fails with ErrInvalidAmount.
func Parse(input string, symbols ...string) (Money, error) {
	normalized, ok := normalize(input, symbols)
	if !ok || digitCount(normalized) > MaxDigits {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return FromDecimal(d), nil
}

func digitCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// ParseFormatted is the inverse of Format: ParseFormatted(m.Format(o)) equals
// m.RoundTo(o.DecimalPlaces). A custom Symbol must be passed in symbols.
func ParseFormatted(s string, symbols ...string) (Money, error) {
	return Parse(s, symbols...)
}

// MustParse is Parse for literals; it panics on invalid input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func normalize(input string, extra []string) (string, bool) {
	s := strings.TrimSpace(input)
	symbols := append(append([]string{}, extra...), knownSymbols...)

	sign := ""
	takeSign := func() {
		if sign != "" || s == "" {
			return
		}
		if s[0] == '-' || s[0] == '+' {
			sign = s[:1]
			s = strings.TrimSpace(s[1:])
		}
	}
	stripSymbol := func() {
		for _, sym := range symbols {
			if sym == "" {
				continue
			}
			if strings.HasPrefix(s, sym) {
				s = strings.TrimSpace(strings.TrimPrefix(s, sym))
				return
			}
			if strings.HasSuffix(s, sym) {
				s = strings.TrimSpace(strings.TrimSuffix(s, sym))
				return
			}
		}
	}

	takeSign()
	stripSymbol()
	takeSign()
	s = strings.ReplaceAll(s, ",", "")
	if !numeral.MatchString(s) {
		return "", false
	}
	if s[0] == '.' {
		s = "0" + s
	}
	if sign == "-" {
		return "-" + s, true
	}
	return s, true
}
