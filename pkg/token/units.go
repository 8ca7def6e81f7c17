package token

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// IndicatorDecimals is the fixed-point precision of the public indicated balance.
const IndicatorDecimals = 4

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNonPositive     = errors.New("amount must be greater than zero")
	ErrTooManyDecimals = errors.New("amount has more fraction digits than the token supports")
)

// plainAmount accepts an optional sign, digits and an optional fraction.
// Exponents and bare dots are rejected.
var plainAmount = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// ValidateAmount checks that amount is a positive decimal number.
func ValidateAmount(amount string) error {
	_, err := parsePositive(amount)
	return err
}

func parseAmount(amount string) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !plainAmount.MatchString(amount) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return d, nil
}

func parsePositive(amount string) (decimal.Decimal, error) {
	d, err := parseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	return d, nil
}

// ParseUnits converts a human decimal string ("2.5") into the smallest-unit
// integer for a token with the given decimals. The conversion is exact.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := parsePositive(amount)
	if err != nil {
		return nil, err
	}
	if fractionDigits(amount) > int(decimals) {
		return nil, fmt.Errorf("%w: %d", ErrTooManyDecimals, decimals)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// fractionDigits counts significant fraction digits of a plain amount.
func fractionDigits(amount string) int {
	_, frac, ok := strings.Cut(strings.TrimSpace(amount), ".")
	if !ok {
		return 0
	}
	return len(strings.TrimRight(frac, "0"))
}

// FormatUnits renders a smallest-unit integer as a human decimal string
// without trailing zeros ("1500000", 6 -> "1.5").
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// FormatIndicated renders the 4-decimal fixed-point indicated balance with
// all four fraction digits ("1234" -> "0.1234").
func FormatIndicated(raw *big.Int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, -IndicatorDecimals).StringFixed(IndicatorDecimals)
}

// CompareAmounts compares two human decimal strings.
func CompareAmounts(a, b string) (int, error) {
	da, err := parseAmount(a)
	if err != nil {
		return 0, err
	}
	db, err := parseAmount(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}
