package model

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a decimal amount with two fractional digits, held as cents.
// It encodes to JSON as a number (12.5 -> 12.50) and accepts either a number
// or a numeric string.
type Money int64

// ParseMoney parses a decimal string such as "12.34", "-3" or ".5". At most
// two fractional digits may be non-zero; exponents are rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty amount")
	}
	digits := s
	neg := false
	switch digits[0] {
	case '-':
		neg = true
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}
	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" && frac == "" || !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("parse money %q: not a decimal amount", s)
	}
	if trimmed := strings.TrimRight(frac, "0"); len(trimmed) > 2 {
		return 0, fmt.Errorf("parse money %q: more than two decimal places", s)
	}
	frac = (frac + "00")[:2]

	var units uint64
	if whole != "" {
		var err error
		if units, err = strconv.ParseUint(whole, 10, 64); err != nil {
			return 0, fmt.Errorf("parse money %q: out of range", s)
		}
	}
	cents, _ := strconv.ParseUint(frac, 10, 64)
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("parse money %q: out of range", s)
	}
	v := int64(units*100 + cents)
	if neg {
		v = -v
	}
	return Money(v), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) String() string {
	sign := ""
	c := uint64(m)
	if m < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m = Money(v)
	case float64:
		*m = Money(math.Round(v))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		*m = Money(n)
	case nil:
		*m = 0
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	return nil
}
