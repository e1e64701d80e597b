package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a money amount in integer minor units. All wallet and budget
// arithmetic happens on this type; decimals exist only at the API boundary.
type Cents int64

var (
	ErrNotPositive = errors.New("amount must be greater than zero")
	ErrSubCent     = errors.New("amount has sub-cent precision")
	ErrOutOfRange  = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// platformFeeRate is the 10% fee added on top of workersNeeded * costPerWorker.
var platformFeeRate = decimal.NewFromFloat(0.10)

// FromDecimal converts a major-unit decimal amount (e.g. "12.50") to Cents.
// Rejects sub-cent precision rather than silently rounding.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, ErrSubCent
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrOutOfRange
	}
	return Cents(scaled.IntPart()), nil
}

// ParsePositive parses a major-unit decimal string into a strictly positive amount.
func ParsePositive(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	c, err := FromDecimal(d)
	if err != nil {
		return 0, err
	}
	if c <= 0 {
		return 0, ErrNotPositive
	}
	return c, nil
}

// Decimal returns the major-unit decimal representation.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a decimal number with two places.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or decimal string.
func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PlatformFee is 10% of the base amount, rounded half-up to the nearest cent.
func PlatformFee(base Cents) Cents {
	fee := decimal.NewFromInt(int64(base)).Mul(platformFeeRate).Round(0)
	return Cents(fee.IntPart())
}

// TotalJobCost returns workersNeeded*costPerWorker plus the platform fee.
func TotalJobCost(workersNeeded int, costPerWorker Cents) Cents {
	base := Cents(int64(workersNeeded) * int64(costPerWorker))
	return base + PlatformFee(base)
}
