package model

import "github.com/shopspring/decimal"

// RiskLimits 定义账户维度的签名前风控规则, 零值表示不限制
type RiskLimits struct {
	MaxStake          decimal.Decimal `json:"max_stake"`          // 单笔最大名义金额 (USDC)
	MaxDailyVolume    decimal.Decimal `json:"max_daily_volume"`   // 单日最大名义金额
	MaxDailyPayloads  int             `json:"max_daily_payloads"` // 单日最大签名次数
	VerifyMakerOrders bool            `json:"verify_maker_orders"`
}

// RateLimitConfig 定义账户的限流规则
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// Account is a caller of the gateway (a bot) bound to one signing address.
// The private key itself lives in the account registry, never on this struct.
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	ApiKey  string          `json:"api_key"`
	Address string          `json:"address"`
	Risk    RiskLimits      `json:"risk"`
	Rate    RateLimitConfig `json:"rate_limit"`
}

// Masked returns a copy safe to expose on admin endpoints.
func (a Account) Masked() Account {
	a.ApiKey = MaskSecret(a.ApiKey)
	return a
}

func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
