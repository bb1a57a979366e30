package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRiskEngineMaxStake(t *testing.T) {
	engine := NewRiskEngine(NewRiskUsageStore())
	account := &model.Account{ID: "acct", Risk: model.RiskLimits{MaxStake: d("100")}}
	ctx := context.Background()

	assert.NoError(t, engine.CheckStakes(ctx, account, []decimal.Decimal{d("100"), d("50")}))

	err := engine.CheckStakes(ctx, account, []decimal.Decimal{d("10"), d("100.01")})
	require.Error(t, err)
	appErr := apperrors.Wrap(err)
	assert.Equal(t, apperrors.ErrValidation, appErr.Type)
	assert.Equal(t, "stakes[1]", appErr.Field)

	err = engine.CheckStakes(ctx, account, []decimal.Decimal{decimal.Zero})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestRiskEngineDailyVolume(t *testing.T) {
	engine := NewRiskEngine(NewRiskUsageStore())
	account := &model.Account{ID: "acct", Risk: model.RiskLimits{MaxDailyVolume: d("100")}}
	ctx := context.Background()

	stakes := []decimal.Decimal{d("60")}
	require.NoError(t, engine.CheckStakes(ctx, account, stakes))
	engine.Record(ctx, account, stakes)

	assert.NoError(t, engine.CheckStakes(ctx, account, []decimal.Decimal{d("40")}))
	assert.Error(t, engine.CheckStakes(ctx, account, []decimal.Decimal{d("40.5")}))

	// usage is per account
	other := &model.Account{ID: "other", Risk: account.Risk}
	assert.NoError(t, engine.CheckStakes(ctx, other, []decimal.Decimal{d("99")}))
}

func TestRiskEngineDailyPayloads(t *testing.T) {
	engine := NewRiskEngine(NewRiskUsageStore())
	account := &model.Account{ID: "acct", Risk: model.RiskLimits{MaxDailyPayloads: 2}}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, engine.CheckStakes(ctx, account, []decimal.Decimal{d("1")}))
		engine.Record(ctx, account, []decimal.Decimal{d("1")})
	}
	err := engine.CheckStakes(ctx, account, []decimal.Decimal{d("1")})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

type brokenUsage struct{}

func (brokenUsage) GetDailyUsage(context.Context, string) (int, decimal.Decimal, error) {
	return 0, decimal.Zero, errors.New("redis down")
}

func (brokenUsage) AddDailyUsage(context.Context, string, int, decimal.Decimal) error {
	return errors.New("redis down")
}

func TestRiskEngineUsageLookupFailure(t *testing.T) {
	engine := NewRiskEngine(brokenUsage{})
	ctx := context.Background()

	// no daily limits means no lookup
	assert.NoError(t, engine.CheckStakes(ctx, &model.Account{ID: "a"}, []decimal.Decimal{d("1")}))

	limited := &model.Account{ID: "a", Risk: model.RiskLimits{MaxDailyVolume: d("10")}}
	err := engine.CheckStakes(ctx, limited, []decimal.Decimal{d("1")})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInternal))

	engine.Record(ctx, limited, []decimal.Decimal{d("1")})
}

func TestRiskUsageStoreRollsOverDaily(t *testing.T) {
	store := NewRiskUsageStore()
	day := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }
	ctx := context.Background()

	require.NoError(t, store.AddDailyUsage(ctx, "acct", 1, d("12.5")))
	payloads, volume, err := store.GetDailyUsage(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, 1, payloads)
	assert.True(t, volume.Equal(d("12.5")))

	day = day.Add(2 * time.Hour)
	payloads, volume, err = store.GetDailyUsage(ctx, "acct")
	require.NoError(t, err)
	assert.Zero(t, payloads)
	assert.True(t, volume.IsZero())
}
