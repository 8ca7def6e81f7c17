package token

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits_Exact(t *testing.T) {
	got, err := ParseUnits("2.5", 18)
	require.NoError(t, err)

	want, ok := new(big.Int).SetString("2500000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, 0, got.Cmp(want), "got %s", got)
}

func TestParseUnits_LargeIntegerPart(t *testing.T) {
	got, err := ParseUnits("123456789012345678901234567890.000000000000000001", 18)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890000000000000000001", got.String())
}

func TestParseUnits_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		wantErr  error
	}{
		{"empty", "", 18, ErrInvalidAmount},
		{"spaces", "   ", 18, ErrInvalidAmount},
		{"not a number", "ten", 18, ErrInvalidAmount},
		{"negative", "-1", 18, ErrNonPositive},
		{"zero", "0", 18, ErrNonPositive},
		{"too precise", "0.0000001", 6, ErrTooManyDecimals},
		{"exponent", "1e3", 18, ErrInvalidAmount},
		{"huge exponent", "1e8000000", 18, ErrInvalidAmount},
		{"negative exponent", "5E-1", 18, ErrInvalidAmount},
		{"bare fraction", ".5", 18, ErrInvalidAmount},
		{"trailing dot", "5.", 18, ErrInvalidAmount},
		{"fraction beyond zero decimals", "1.5", 0, ErrTooManyDecimals},
		{"long fraction", "1." + strings.Repeat("1", 40), 18, ErrTooManyDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUnits(tt.amount, tt.decimals)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500000), 6))
	assert.Equal(t, "0", FormatUnits(big.NewInt(0), 18))
	assert.Equal(t, "0", FormatUnits(nil, 18))
	assert.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
	assert.Equal(t, "0.000001", FormatUnits(big.NewInt(1), 6))
}

func TestUnits_RoundTrip(t *testing.T) {
	amounts := []string{"1", "2.5", "0.1", "0.000001", "1000000", "3.14159", "99.99", "0.123456789012345678", "7.0"}

	for decimals := uint8(0); decimals <= 18; decimals++ {
		for _, amount := range amounts {
			want := decimal.RequireFromString(amount)
			if !want.Shift(int32(decimals)).IsInteger() {
				continue
			}

			raw, err := ParseUnits(amount, decimals)
			require.NoError(t, err, "amount %s decimals %d", amount, decimals)

			got := decimal.RequireFromString(FormatUnits(raw, decimals))
			assert.True(t, want.Equal(got), "amount %s decimals %d: got %s", amount, decimals, got)
		}
	}
}

func TestFormatIndicated(t *testing.T) {
	assert.Equal(t, "0.1234", FormatIndicated(big.NewInt(1234)))
	assert.Equal(t, "0.0000", FormatIndicated(big.NewInt(0)))
	assert.Equal(t, "0.0000", FormatIndicated(nil))
	assert.Equal(t, "0.9999", FormatIndicated(big.NewInt(9999)))
}

func TestCompareAmounts(t *testing.T) {
	cmp, err := CompareAmounts("1.50", "1.5")
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = CompareAmounts("2", "10")
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	_, err = CompareAmounts("x", "1")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CompareAmounts("1", "1e8000000")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseUnits_TrailingZerosWithinPrecision(t *testing.T) {
	got, err := ParseUnits("7.000", 0)
	require.NoError(t, err)
	assert.Equal(t, "7", got.String())

	got, err = ParseUnits(" 1.50 ", 1)
	require.NoError(t, err)
	assert.Equal(t, "15", got.String())
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("confidential")
	require.NoError(t, err)
	assert.True(t, typ.IsConfidential())

	typ, err = ParseType("standard")
	require.NoError(t, err)
	assert.False(t, typ.IsConfidential())

	_, err = ParseType("erc721")
	require.Error(t, err)
}

func TestValidateAmount(t *testing.T) {
	require.NoError(t, ValidateAmount("0.000001"))
	require.ErrorIs(t, ValidateAmount("0"), ErrNonPositive)
	require.ErrorIs(t, ValidateAmount("-1"), ErrNonPositive)
	require.ErrorIs(t, ValidateAmount("abc"), ErrInvalidAmount)
	require.ErrorIs(t, ValidateAmount(" "), ErrInvalidAmount)
	require.ErrorIs(t, ValidateAmount("1e3"), ErrInvalidAmount)
}
