package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskUsageStore 跟踪账户的实时用量（如当日签名金额与次数）
type RiskUsageStore struct {
	mu            sync.RWMutex
	dailyVolume   map[string]decimal.Decimal // Key: AccountID:YYYY-MM-DD
	dailyPayloads map[string]int
	now           func() time.Time
}

func NewRiskUsageStore() *RiskUsageStore {
	return &RiskUsageStore{
		dailyVolume:   make(map[string]decimal.Decimal),
		dailyPayloads: make(map[string]int),
		now:           time.Now,
	}
}

func (s *RiskUsageStore) GetDailyUsage(ctx context.Context, accountID string) (int, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := s.makeKey(accountID)
	return s.dailyPayloads[key], s.dailyVolume[key], nil
}

func (s *RiskUsageStore) AddDailyUsage(ctx context.Context, accountID string, payloads int, volume decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.makeKey(accountID)
	s.dailyVolume[key] = s.dailyVolume[key].Add(volume)
	s.dailyPayloads[key] += payloads
	return nil
}

func (s *RiskUsageStore) makeKey(accountID string) string {
	// 按 UTC 日期分割
	return accountID + ":" + s.now().UTC().Format("2006-01-02")
}
