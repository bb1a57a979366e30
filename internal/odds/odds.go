// Package odds converts between nominal stakes, 1e20-scaled percentage odds,
// implied probability and decimal odds.
//
// Every amount that reaches a signed payload is computed on *big.Int so that
// a currency amount with 18 decimals multiplied by the 1e20 scale never
// overflows. decimal.Decimal is only used at the presentation edge
// (implied and decimal odds, nominal stakes).
package odds

import (
	"fmt"
	"math/big"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

const (
	// DefaultLadderStepBps is the exchange's odds ladder step: 25 basis points (0.25%).
	DefaultLadderStepBps = 25

	// ScaleExponent is the power of ten behind percentage odds.
	ScaleExponent = 20
)

var (
	// Scale is the implicit denominator of percentage odds (1e20).
	Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(ScaleExponent), nil)

	// bpsUnit is one basis point expressed in percentage odds (1e16).
	bpsUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(ScaleExponent-4), nil)

	one         = decimal.NewFromInt(1)
	bpsPerWhole = decimal.NewFromInt(10000)
)

// ValidatePercentageOdds enforces 0 < p < 1e20.
func ValidatePercentageOdds(field string, p *big.Int) error {
	if p == nil {
		return apperrors.NewValidation(field, "percentage odds are required")
	}
	if p.Sign() <= 0 || p.Cmp(Scale) >= 0 {
		return apperrors.NewValidation(field, fmt.Sprintf("percentage odds %s outside (0, 1e20)", p.String()))
	}
	return nil
}

func validatePositive(field string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return apperrors.NewValidation(field, "must be a positive integer")
	}
	return nil
}

func validateNonNegative(field string, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return apperrors.NewValidation(field, "must be a non-negative integer")
	}
	return nil
}

// ToImpliedOdds returns p / 1e20 exactly.
func ToImpliedOdds(p *big.Int) (decimal.Decimal, error) {
	if err := ValidatePercentageOdds("percentageOdds", p); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(p, -ScaleExponent), nil
}

// ToDecimalOdds returns 1 / implied.
func ToDecimalOdds(implied decimal.Decimal) (decimal.Decimal, error) {
	if implied.Sign() <= 0 {
		return decimal.Zero, apperrors.NewDomain("impliedOdds", "implied odds must be greater than zero")
	}
	return one.Div(implied), nil
}

// TakerImpliedOdds is the implied probability of the complementary outcome
// the taker backs.
func TakerImpliedOdds(makerP *big.Int) (decimal.Decimal, error) {
	implied, err := ToImpliedOdds(makerP)
	if err != nil {
		return decimal.Zero, err
	}
	return one.Sub(implied), nil
}

// FillAmountFromTakerStake converts a taker stake into the maker-perspective
// amount it consumes: stake * p / (1e20 - p), truncated toward zero.
func FillAmountFromTakerStake(takerStake, makerP *big.Int) (*big.Int, error) {
	if err := validatePositive("takerStake", takerStake); err != nil {
		return nil, err
	}
	if err := ValidatePercentageOdds("percentageOdds", makerP); err != nil {
		return nil, err
	}
	num := new(big.Int).Mul(takerStake, makerP)
	den := new(big.Int).Sub(Scale, makerP)
	return num.Quo(num, den), nil
}

// MakerStakeFromTakerStake is FillAmountFromTakerStake under the name the
// builders read best with.
func MakerStakeFromTakerStake(takerStake, makerP *big.Int) (*big.Int, error) {
	return FillAmountFromTakerStake(takerStake, makerP)
}

// TakerStakeFromFillAmount inverts FillAmountFromTakerStake:
// amount * (1e20 - p) / p, truncated toward zero.
func TakerStakeFromFillAmount(fillAmount, makerP *big.Int) (*big.Int, error) {
	if err := validatePositive("fillAmount", fillAmount); err != nil {
		return nil, err
	}
	if err := ValidatePercentageOdds("percentageOdds", makerP); err != nil {
		return nil, err
	}
	num := new(big.Int).Sub(Scale, makerP)
	num.Mul(num, fillAmount)
	return num.Quo(num, makerP), nil
}

// RemainingTakerSpace returns how much a taker can still stake against an
// order of totalBetSize that already has fillAmount filled.
func RemainingTakerSpace(totalBetSize, fillAmount, makerP *big.Int) (*big.Int, error) {
	if err := validatePositive("totalBetSize", totalBetSize); err != nil {
		return nil, err
	}
	if err := validateNonNegative("fillAmount", fillAmount); err != nil {
		return nil, err
	}
	if err := ValidatePercentageOdds("percentageOdds", makerP); err != nil {
		return nil, err
	}
	remainingMaker := new(big.Int).Sub(totalBetSize, fillAmount)
	if remainingMaker.Sign() <= 0 {
		return new(big.Int), nil
	}
	out := new(big.Int).Mul(remainingMaker, Scale)
	out.Quo(out, makerP)
	return out.Sub(out, remainingMaker), nil
}

// LadderUnit is the percentage-odds width of one ladder step.
func LadderUnit(stepBps int) *big.Int {
	return new(big.Int).Mul(bpsUnit, big.NewInt(int64(stepBps)))
}

// SnapToOddsLadder rounds implied odds half away from zero to the nearest
// multiple of stepBps basis points and returns the 1e20-scaled value.
func SnapToOddsLadder(implied decimal.Decimal, stepBps int) (*big.Int, error) {
	if stepBps <= 0 || stepBps >= 10000 {
		return nil, apperrors.NewValidation("stepBps", fmt.Sprintf("ladder step %d bps outside (0, 10000)", stepBps))
	}
	if implied.Sign() <= 0 || implied.GreaterThanOrEqual(one) {
		return nil, apperrors.NewDomain("impliedOdds", fmt.Sprintf("implied odds %s outside (0, 1)", implied.String()))
	}
	steps := implied.Mul(bpsPerWhole).Div(decimal.NewFromInt(int64(stepBps))).Round(0)
	p := new(big.Int).Mul(steps.BigInt(), LadderUnit(stepBps))
	if err := ValidatePercentageOdds("impliedOdds", p); err != nil {
		return nil, apperrors.NewValidation("impliedOdds",
			fmt.Sprintf("implied odds %s snap outside the ladder bounds", implied.String()))
	}
	return p, nil
}

// IsOnLadder reports whether p is an exact multiple of the ladder step.
func IsOnLadder(p *big.Int, stepBps int) bool {
	if p == nil || stepBps <= 0 {
		return false
	}
	return new(big.Int).Mod(p, LadderUnit(stepBps)).Sign() == 0
}

// PercentageOddsFromDecimalOdds inverts decimal odds and snaps the result to
// the ladder.
func PercentageOddsFromDecimalOdds(decimalOdds decimal.Decimal, stepBps int) (*big.Int, error) {
	if decimalOdds.LessThanOrEqual(one) {
		return nil, apperrors.NewDomain("decimalOdds", "decimal odds must be greater than 1")
	}
	return SnapToOddsLadder(one.Div(decimalOdds), stepBps)
}

// ToBaseUnits scales a nominal amount to the currency's smallest unit.
// Amounts with precision beyond the currency's decimals are rejected.
func ToBaseUnits(field string, amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, apperrors.NewValidation(field, "amount must be positive")
	}
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, apperrors.NewValidation(field,
			fmt.Sprintf("amount %s has more than %d decimal places", amount.String(), decimals))
	}
	return shifted.BigInt(), nil
}

func FromBaseUnits(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// Quote is a presentation view of one percentage-odds value.
type Quote struct {
	PercentageOdds   string          `json:"percentage_odds"`
	ImpliedOdds      decimal.Decimal `json:"implied_odds"`
	DecimalOdds      decimal.Decimal `json:"decimal_odds"`
	TakerImpliedOdds decimal.Decimal `json:"taker_implied_odds"`
	TakerDecimalOdds decimal.Decimal `json:"taker_decimal_odds"`
	OnLadder         bool            `json:"on_ladder"`
}

// NewQuote computes maker and taker views of p.
func NewQuote(p *big.Int, stepBps int) (*Quote, error) {
	implied, err := ToImpliedOdds(p)
	if err != nil {
		return nil, err
	}
	dec, err := ToDecimalOdds(implied)
	if err != nil {
		return nil, err
	}
	takerImplied := one.Sub(implied)
	takerDec, err := ToDecimalOdds(takerImplied)
	if err != nil {
		return nil, err
	}
	return &Quote{
		PercentageOdds:   p.String(),
		ImpliedOdds:      implied,
		DecimalOdds:      dec,
		TakerImpliedOdds: takerImplied,
		TakerDecimalOdds: takerDec,
		OnLadder:         IsOnLadder(p, stepBps),
	}, nil
}
