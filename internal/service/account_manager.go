package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// AccountManager 管理账户信息、签名私钥以及限流器
type AccountManager struct {
	mu             sync.RWMutex
	accounts       map[string]*model.Account // Key: Gateway ApiKey
	keys           map[string]*signer.Key    // Key: AccountID
	limiters       map[string]*rate.Limiter  // Key: AccountID
	defaultAccount *model.Account
}

func NewAccountManager() *AccountManager {
	return &AccountManager{
		accounts: make(map[string]*model.Account),
		keys:     make(map[string]*signer.Key),
		limiters: make(map[string]*rate.Limiter),
	}
}

// NewAccountManagerFromConfig registers every configured account. The first
// account becomes the default used when API keys are not required.
func NewAccountManagerFromConfig(cfg *config.Config) (*AccountManager, error) {
	am := NewAccountManager()
	base, err := riskLimitsFromConfig(cfg.Risk)
	if err != nil {
		return nil, err
	}
	for _, ac := range cfg.Accounts {
		override, err := riskLimitsFromConfig(ac.Risk)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", ac.ID, err)
		}
		var key *signer.Key
		if ac.PrivateKey != "" {
			key, err = signer.ParseKey(ac.PrivateKey)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", ac.ID, err)
			}
		}
		account := &model.Account{
			ID:     ac.ID,
			Name:   ac.Name,
			ApiKey: ac.APIKey,
			Risk: model.RiskLimits{
				MaxStake:          chooseDecimal(base.MaxStake, override.MaxStake),
				MaxDailyVolume:    chooseDecimal(base.MaxDailyVolume, override.MaxDailyVolume),
				MaxDailyPayloads:  chooseInt(base.MaxDailyPayloads, override.MaxDailyPayloads),
				VerifyMakerOrders: base.VerifyMakerOrders || override.VerifyMakerOrders,
			},
			Rate: model.RateLimitConfig{
				QPS:   ac.Rate.QPS,
				Burst: ac.Rate.Burst,
			},
		}
		am.Register(account, key)
		if am.defaultAccount == nil {
			am.defaultAccount = account
		}
	}
	return am, nil
}

// Register adds or replaces an account. A nil key registers a read-only
// account that can quote odds and read its audit log but never sign.
func (am *AccountManager) Register(a *model.Account, key *signer.Key) {
	if a == nil {
		return
	}
	am.mu.Lock()
	defer am.mu.Unlock()
	if key != nil {
		a.Address = key.Address().Hex()
		am.keys[a.ID] = key
	}
	if a.ApiKey != "" {
		am.accounts[a.ApiKey] = a
	}

	// 如果配置为0，给予一个宽松限制
	limit := rate.Limit(a.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := a.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	am.limiters[a.ID] = rate.NewLimiter(limit, burst)
}

func (am *AccountManager) RemoveByID(id string) {
	am.mu.Lock()
	defer am.mu.Unlock()
	for apiKey, a := range am.accounts {
		if a != nil && a.ID == id {
			delete(am.accounts, apiKey)
		}
	}
	delete(am.keys, id)
	delete(am.limiters, id)
	if am.defaultAccount != nil && am.defaultAccount.ID == id {
		am.defaultAccount = nil
	}
}

func (am *AccountManager) GetByApiKey(apiKey string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	a, ok := am.accounts[apiKey]
	return a, ok
}

func (am *AccountManager) GetByID(id string) (*model.Account, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	for _, a := range am.accounts {
		if a != nil && a.ID == id {
			return a, true
		}
	}
	if am.defaultAccount != nil && am.defaultAccount.ID == id {
		return am.defaultAccount, true
	}
	return nil, false
}

func (am *AccountManager) List() []*model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	results := make([]*model.Account, 0, len(am.accounts))
	seen := make(map[string]struct{})
	add := func(a *model.Account) {
		if a == nil {
			return
		}
		if _, ok := seen[a.ID]; ok {
			return
		}
		seen[a.ID] = struct{}{}
		results = append(results, a)
	}
	for _, a := range am.accounts {
		add(a)
	}
	add(am.defaultAccount)
	return results
}

func (am *AccountManager) DefaultAccount() *model.Account {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.defaultAccount
}

// GetLimiter 获取账户的限流器
func (am *AccountManager) GetLimiter(accountID string) *rate.Limiter {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.limiters[accountID]
}

// SigningKey returns the account's key or a SigningError when the account
// was registered without one.
func (am *AccountManager) SigningKey(_ context.Context, accountID string) (*signer.Key, error) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	key, ok := am.keys[accountID]
	if !ok || key == nil {
		return nil, apperrors.NewSigning(fmt.Sprintf("account %s has no signing key configured", accountID), nil)
	}
	return key, nil
}

func riskLimitsFromConfig(rc config.RiskConfig) (model.RiskLimits, error) {
	limits := model.RiskLimits{
		MaxDailyPayloads:  rc.MaxDailyPayloads,
		VerifyMakerOrders: rc.VerifyMakerOrders,
	}
	var err error
	if limits.MaxStake, err = parseOptionalDecimal("risk.max_stake", rc.MaxStake); err != nil {
		return limits, err
	}
	if limits.MaxDailyVolume, err = parseOptionalDecimal("risk.max_daily_volume", rc.MaxDailyVolume); err != nil {
		return limits, err
	}
	return limits, nil
}

func parseOptionalDecimal(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

func chooseDecimal(base, override decimal.Decimal) decimal.Decimal {
	if override.IsPositive() {
		return override
	}
	return base
}

func chooseInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}
