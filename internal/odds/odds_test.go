package odds

import (
	"math/big"
	"testing"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}

func TestToDecimalOddsRoundTrip(t *testing.T) {
	samples := []string{
		"1",
		"1000000000000000000",
		"25000000000000000000",
		"50000000000000000000",
		"50250000000000000000",
		"73333333333333333333",
		"99999999999999999999",
	}
	for _, s := range samples {
		p := pct(s)
		implied, err := ToImpliedOdds(p)
		require.NoError(t, err, s)
		dec, err := ToDecimalOdds(implied)
		require.NoError(t, err, s)

		pf, _ := new(big.Float).SetInt(p).Float64()
		want := 1 / (pf / 1e20)
		assert.InEpsilon(t, want, dec.InexactFloat64(), 1e-9, s)
	}
}

func TestToImpliedOddsRejectsOutOfRange(t *testing.T) {
	for _, p := range []*big.Int{big.NewInt(0), big.NewInt(-5), new(big.Int).Set(Scale), nil} {
		_, err := ToImpliedOdds(p)
		assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
	}
}

func TestToDecimalOddsDomainError(t *testing.T) {
	_, err := ToDecimalOdds(decimal.Zero)
	assert.True(t, apperrors.IsType(err, apperrors.ErrDomain))

	_, err = ToDecimalOdds(decimal.NewFromFloat(-0.2))
	assert.True(t, apperrors.IsType(err, apperrors.ErrDomain))
}

func TestTakerImpliedOdds(t *testing.T) {
	got, err := TakerImpliedOdds(pct("52500000000000000000"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("0.475")), got.String())
}

func TestFillAmountFromTakerStake(t *testing.T) {
	got, err := FillAmountFromTakerStake(big.NewInt(10), pct("50000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())

	// 10 USDC against 25% maker odds consumes 10 * 25/75 maker units, truncated.
	got, err = FillAmountFromTakerStake(big.NewInt(10_000_000), pct("25000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "3333333", got.String())

	_, err = FillAmountFromTakerStake(big.NewInt(0), pct("50000000000000000000"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestFillAmountNoOverflowAt18Decimals(t *testing.T) {
	stake := pct("1000000000000000000000000") // 1e6 tokens at 18 decimals
	got, err := FillAmountFromTakerStake(stake, pct("99750000000000000000"))
	require.NoError(t, err)
	// 1e24 * 99.75 / 0.25 = 399e24
	assert.Equal(t, "399000000000000000000000000", got.String())
}

func TestRemainingTakerSpace(t *testing.T) {
	got, err := RemainingTakerSpace(big.NewInt(100), big.NewInt(40), pct("25000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "180", got.String())

	got, err = RemainingTakerSpace(big.NewInt(100), big.NewInt(100), pct("25000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "0", got.String())

	got, err = RemainingTakerSpace(big.NewInt(100), big.NewInt(140), pct("25000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "0", got.String())
}

func TestFillAndRemainingAreInverseConsistent(t *testing.T) {
	cases := []struct {
		total string
		p     string
	}{
		{"100000000", "25000000000000000000"},
		{"1000000", "52500000000000000000"},
		{"123456789", "50250000000000000000"},
		{"5000000000000000000", "87750000000000000000"},
	}
	for _, tc := range cases {
		total := pct(tc.total)
		p := pct(tc.p)

		space, err := RemainingTakerSpace(total, big.NewInt(0), p)
		require.NoError(t, err)
		filled, err := FillAmountFromTakerStake(space, p)
		require.NoError(t, err)
		assert.True(t, filled.Cmp(total) <= 0, "fill %s exceeds total %s", filled, total)

		left, err := RemainingTakerSpace(total, filled, p)
		require.NoError(t, err)
		assert.True(t, left.Cmp(big.NewInt(2)) <= 0, "remaining %s after full fill", left)
	}
}

func TestSnapToOddsLadder(t *testing.T) {
	got, err := SnapToOddsLadder(decimal.RequireFromString("0.5025"), DefaultLadderStepBps)
	require.NoError(t, err)
	assert.Equal(t, "50250000000000000000", got.String())

	got, err = SnapToOddsLadder(decimal.RequireFromString("0.50333"), DefaultLadderStepBps)
	require.NoError(t, err)
	assert.Equal(t, "50250000000000000000", got.String())

	// Exactly half a step rounds away from zero.
	got, err = SnapToOddsLadder(decimal.RequireFromString("0.50375"), DefaultLadderStepBps)
	require.NoError(t, err)
	assert.Equal(t, "50500000000000000000", got.String())
}

func TestSnapAlwaysLandsOnLadder(t *testing.T) {
	step := decimal.RequireFromString("0.00037")
	for v := decimal.RequireFromString("0.002"); v.LessThan(decimal.RequireFromString("0.998")); v = v.Add(step) {
		p, err := SnapToOddsLadder(v, DefaultLadderStepBps)
		require.NoError(t, err, v.String())
		assert.True(t, IsOnLadder(p, DefaultLadderStepBps), v.String())
	}
}

func TestSnapRejectsOutOfBounds(t *testing.T) {
	_, err := SnapToOddsLadder(decimal.RequireFromString("1.2"), DefaultLadderStepBps)
	assert.True(t, apperrors.IsType(err, apperrors.ErrDomain))

	_, err = SnapToOddsLadder(decimal.RequireFromString("0.001"), DefaultLadderStepBps)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	_, err = SnapToOddsLadder(decimal.RequireFromString("0.5"), 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestIsOnLadder(t *testing.T) {
	assert.True(t, IsOnLadder(pct("50250000000000000000"), 25))
	assert.False(t, IsOnLadder(pct("50333000000000000000"), 25))
	assert.True(t, IsOnLadder(pct("50300000000000000000"), 10))
	assert.False(t, IsOnLadder(pct("50250000000000000000"), 0))
}

func TestPercentageOddsFromDecimalOdds(t *testing.T) {
	got, err := PercentageOddsFromDecimalOdds(decimal.RequireFromString("2"), DefaultLadderStepBps)
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000", got.String())

	_, err = PercentageOddsFromDecimalOdds(decimal.RequireFromString("1"), DefaultLadderStepBps)
	assert.True(t, apperrors.IsType(err, apperrors.ErrDomain))
}

func TestBaseUnits(t *testing.T) {
	got, err := ToBaseUnits("stake", decimal.RequireFromString("12.5"), 6)
	require.NoError(t, err)
	assert.Equal(t, "12500000", got.String())

	_, err = ToBaseUnits("stake", decimal.RequireFromString("0.0000001"), 6)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	_, err = ToBaseUnits("stake", decimal.RequireFromString("-1"), 6)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	assert.True(t, FromBaseUnits(big.NewInt(12500000), 6).Equal(decimal.RequireFromString("12.5")))
}

func TestNewQuote(t *testing.T) {
	q, err := NewQuote(pct("25000000000000000000"), DefaultLadderStepBps)
	require.NoError(t, err)
	assert.True(t, q.DecimalOdds.Equal(decimal.NewFromInt(4)))
	assert.True(t, q.TakerImpliedOdds.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, q.OnLadder)
}

func TestTakerStakeFromFillAmount(t *testing.T) {
	got, err := TakerStakeFromFillAmount(big.NewInt(10), pct("50000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())

	// truncation on the way back loses at most one base unit
	got, err = TakerStakeFromFillAmount(big.NewInt(3333333), pct("25000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "9999999", got.String())

	_, err = TakerStakeFromFillAmount(big.NewInt(0), pct("25000000000000000000"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}
