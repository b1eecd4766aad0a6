package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is a currency amount stored as an integer number of cents.  It is
// persisted as DECIMAL(8,2) and travels over JSON as a two-decimal string
// ("20.00").  Integer cents keep sums exact across installments.
type Money int64

// ErrInvalidMoney is returned when a string cannot be read as an amount
// with at most two decimal places.
var ErrInvalidMoney = errors.New("invalid amount")

// ErrMoneyRange is returned for amounts that do not fit DECIMAL(8,2).
var ErrMoneyRange = errors.New("amount out of range, maximum is 999999.99")

// MaxMoney is the largest amount a DECIMAL(8,2) column holds.
const MaxMoney Money = 99999999

// Units builds a Money value from whole currency units.
func Units(n int64) Money { return Money(n * 100) }

// ParseMoney reads "20", "20.5", "20.50" or "-3.25" into cents.  More than
// two decimal places, exponents and empty input are rejected, and so is
// anything beyond ±MaxMoney.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrInvalidMoney
	}
	if len(frac) > 2 || !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrInvalidMoney
	}
	for len(frac) < 2 {
		frac += "0"
	}
	whole = strings.TrimLeft(whole, "0")
	// 999999 is the largest whole part that fits; longer input would also
	// overflow the multiplication below.
	if len(whole) > 6 {
		return 0, ErrMoneyRange
	}
	var units int64
	if whole != "" {
		units, _ = strconv.ParseInt(whole, 10, 64)
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money(total), nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// InRange reports whether m fits the storage column.
func (m Money) InRange() bool { return m >= -MaxMoney && m <= MaxMoney }

// Cents returns the raw integer amount.
func (m Money) Cents() int64 { return int64(m) }

// String formats the amount with exactly two decimals.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both JSON numbers and strings so that clients can
// send {"amount": 10} as well as {"amount": "10.00"}.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidMoney
		}
		raw = s
	}
	v, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan reads DECIMAL columns, which the MySQL driver hands over as []byte.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		p, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = p
		return nil
	case string:
		p, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = p
		return nil
	case int64:
		if v > int64(MaxMoney/100) || v < -int64(MaxMoney/100) {
			return ErrMoneyRange
		}
		*m = Units(v)
		return nil
	case float64:
		p, err := ParseMoney(strconv.FormatFloat(v, 'f', 2, 64))
		if err != nil {
			return err
		}
		*m = p
		return nil
	}
	return fmt.Errorf("cannot scan %T into Money", src)
}

// Value stores the amount as a decimal string.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
