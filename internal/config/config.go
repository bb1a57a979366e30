package config

import (
	"fmt"
	"strings"

	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Chain    ChainConfig     `mapstructure:"chain"`
	Protocol ProtocolConfig  `mapstructure:"protocol"`
	Exchange ExchangeConfig  `mapstructure:"exchange"`
	Risk     RiskConfig      `mapstructure:"risk"`
	Accounts []AccountConfig `mapstructure:"accounts"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
	AuditDir string `mapstructure:"audit_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	AdminKey      string `mapstructure:"admin_key"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	UsageKeyPrefix        string `mapstructure:"usage_key_prefix"`
}

type ChainConfig struct {
	RPCURL    string `mapstructure:"rpc_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	Retries   int    `mapstructure:"retries"`
}

// ProtocolConfig holds the constants the settlement contracts verify against.
type ProtocolConfig struct {
	ChainID           int64  `mapstructure:"chain_id"`
	FillDomainVersion string `mapstructure:"fill_domain_version"`
	FillHasher        string `mapstructure:"fill_hasher"`
	Executor          string `mapstructure:"executor"`
	BaseToken         string `mapstructure:"base_token"`
	BaseTokenDecimals int32  `mapstructure:"base_token_decimals"`
	LadderStepBps     int    `mapstructure:"ladder_step_bps"`
	StrictLadder      bool   `mapstructure:"strict_ladder"`
	LegacyExpiry      int64  `mapstructure:"legacy_expiry"`
}

type ExchangeConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	Retries   int    `mapstructure:"retries"`
	// FetchMetadata fills empty protocol addresses from GET /metadata at startup.
	FetchMetadata bool `mapstructure:"fetch_metadata"`
}

// RiskConfig amounts are nominal base-token units (e.g. 100.5 USDC).
type RiskConfig struct {
	MaxStake          string `mapstructure:"max_stake"`
	MaxDailyVolume    string `mapstructure:"max_daily_volume"`
	MaxDailyPayloads  int    `mapstructure:"max_daily_payloads"`
	VerifyMakerOrders bool   `mapstructure:"verify_maker_orders"`
}

type RateConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type AccountConfig struct {
	ID         string     `mapstructure:"id"`
	Name       string     `mapstructure:"name"`
	APIKey     string     `mapstructure:"api_key"`
	PrivateKey string     `mapstructure:"private_key"`
	Rate       RateConfig `mapstructure:"rate"`
	Risk       RiskConfig `mapstructure:"risk"`
}

func Load() (*Config, error) {
	// Load .env file if it exists (optional); real env vars win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Environment variables support
	// e.g. SXGATE_PROTOCOL_FILL_HASHER
	v.SetEnvPrefix("sxgate")
	v.SetEnvKeyReplacer(newEnvReplacer())
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Info("no config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applySingleAccount(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.audit_dir", "logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.require_api_key", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.usage_key_prefix", "sxgate:usage")
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("chain.timeout_ms", 5000)
	v.SetDefault("chain.retries", 1)
	v.SetDefault("protocol.chain_id", 4162)
	v.SetDefault("protocol.fill_domain_version", "6.0")
	v.SetDefault("protocol.base_token_decimals", 6)
	v.SetDefault("protocol.ladder_step_bps", 25)
	v.SetDefault("protocol.strict_ladder", true)
	v.SetDefault("protocol.legacy_expiry", 2209006800)
	v.SetDefault("exchange.base_url", "https://api.sx.bet")
	v.SetDefault("exchange.timeout_ms", 10000)
	v.SetDefault("exchange.retries", 2)
	v.SetDefault("exchange.fetch_metadata", true)
}

// applySingleAccount supports the one-bot setup where only
// SXGATE_ACCOUNT_API_KEY / SXGATE_ACCOUNT_PRIVATE_KEY are set.
func (c *Config) applySingleAccount(v *viper.Viper) {
	if len(c.Accounts) > 0 {
		return
	}
	apiKey := v.GetString("account.api_key")
	privateKey := v.GetString("account.private_key")
	if apiKey == "" && privateKey == "" {
		return
	}
	c.Accounts = []AccountConfig{{
		ID:         "default",
		Name:       "Default Account",
		APIKey:     apiKey,
		PrivateKey: privateKey,
		Rate:       RateConfig{QPS: 10, Burst: 20},
	}}
}

// Validate rejects configurations the protocol would refuse later.
func (c *Config) Validate() error {
	p := c.Protocol
	if p.ChainID <= 0 {
		return fmt.Errorf("protocol.chain_id must be positive")
	}
	for name, addr := range map[string]string{
		"protocol.fill_hasher": p.FillHasher,
		"protocol.executor":    p.Executor,
		"protocol.base_token":  p.BaseToken,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: %q is not a hex address", name, addr)
		}
	}
	if p.BaseTokenDecimals < 0 || p.BaseTokenDecimals > 36 {
		return fmt.Errorf("protocol.base_token_decimals out of range: %d", p.BaseTokenDecimals)
	}
	if p.LadderStepBps <= 0 || p.LadderStepBps >= 10000 {
		return fmt.Errorf("protocol.ladder_step_bps out of range: %d", p.LadderStepBps)
	}
	if p.LegacyExpiry <= 0 {
		return fmt.Errorf("protocol.legacy_expiry must be positive")
	}
	seenIDs := make(map[string]struct{}, len(c.Accounts))
	seenKeys := make(map[string]struct{}, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("accounts[%d].id is required", i)
		}
		if _, dup := seenIDs[a.ID]; dup {
			return fmt.Errorf("accounts[%d]: duplicate id %q", i, a.ID)
		}
		seenIDs[a.ID] = struct{}{}
		if a.APIKey != "" {
			if _, dup := seenKeys[a.APIKey]; dup {
				return fmt.Errorf("accounts[%d]: duplicate api key", i)
			}
			seenKeys[a.APIKey] = struct{}{}
		}
	}
	return nil
}
