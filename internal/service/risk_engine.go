package service

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

type UsageRepo interface {
	GetDailyUsage(ctx context.Context, accountID string) (int, decimal.Decimal, error)
	AddDailyUsage(ctx context.Context, accountID string, payloads int, volume decimal.Decimal) error
}

type RiskEngine struct {
	repo UsageRepo
}

func NewRiskEngine(repo UsageRepo) *RiskEngine {
	return &RiskEngine{repo: repo}
}

// CheckStakes 执行签名前的所有风控检查
// 如果返回 error，则必须拒绝签名. stakes 为名义金额 (USDC)
func (e *RiskEngine) CheckStakes(ctx context.Context, account *model.Account, stakes []decimal.Decimal) error {
	limits := account.Risk
	total := decimal.Zero

	// 1. 单笔限额 (Max Stake)
	for i, stake := range stakes {
		if !stake.IsPositive() {
			metrics.RiskRejects.WithLabelValues("invalid_stake").Inc()
			return apperrors.NewValidation(fmt.Sprintf("stakes[%d]", i), "stake must be positive")
		}
		if limits.MaxStake.IsPositive() && stake.GreaterThan(limits.MaxStake) {
			metrics.RiskRejects.WithLabelValues("max_stake").Inc()
			return apperrors.NewValidation(fmt.Sprintf("stakes[%d]", i),
				fmt.Sprintf("stake %s exceeds limit %s", stake.String(), limits.MaxStake.String()))
		}
		total = total.Add(stake)
	}

	// 2. 每日限额检查 (Daily Limit)
	if !limits.MaxDailyVolume.IsPositive() && limits.MaxDailyPayloads <= 0 {
		return nil
	}
	payloads, volume, err := e.repo.GetDailyUsage(ctx, account.ID)
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "risk usage lookup failed", err)
	}
	if limits.MaxDailyVolume.IsPositive() && volume.Add(total).GreaterThan(limits.MaxDailyVolume) {
		metrics.RiskRejects.WithLabelValues("daily_volume_limit").Inc()
		return apperrors.NewValidation("stakes",
			fmt.Sprintf("daily volume limit exceeded (curr: %s, new: %s, max: %s)",
				volume.String(), total.String(), limits.MaxDailyVolume.String()))
	}
	if limits.MaxDailyPayloads > 0 && payloads+1 > limits.MaxDailyPayloads {
		metrics.RiskRejects.WithLabelValues("daily_payload_limit").Inc()
		return apperrors.NewValidation("payloads",
			fmt.Sprintf("daily payload limit exceeded (curr: %d, max: %d)", payloads, limits.MaxDailyPayloads))
	}
	return nil
}

// Record 签名成功后调用，用于更新风控状态
func (e *RiskEngine) Record(ctx context.Context, account *model.Account, stakes []decimal.Decimal) {
	total := decimal.Zero
	for _, s := range stakes {
		total = total.Add(s)
	}
	if err := e.repo.AddDailyUsage(ctx, account.ID, 1, total); err != nil {
		logger.LogError(ctx, err, "risk usage update failed", "account_id", account.ID)
	}
}
