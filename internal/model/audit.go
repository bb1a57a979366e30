package model

import (
	"time"
)

// AuditLog 代表一次完整的操作审计记录
type AuditLog struct {
	ID        string `json:"id" gorm:"primaryKey;size:64"`        // 唯一请求 ID (UUID)
	AccountID string `json:"account_id" gorm:"index;size:128"`    // 账户 ID
	Method    string `json:"method" gorm:"size:16"`               // HTTP 方法
	Path      string `json:"path" gorm:"size:256"`                // 请求路径
	IP        string `json:"ip" gorm:"size:64"`                   // 客户端 IP
	UserAgent string `json:"user_agent" gorm:"size:512"`          // 客户端 UA
	Kind      string `json:"kind,omitempty" gorm:"index;size:16"` // order / fill / cancel

	// 请求详情
	RequestBody   string `json:"request_body"`   // 请求体 (脱敏后)
	RequestHeader string `json:"request_header"` // 关键 Header

	// 响应详情
	StatusCode   int    `json:"status_code"`   // HTTP 状态码
	ResponseBody string `json:"response_body"` // 响应体 (签名已脱敏)
	LatencyMs    int64  `json:"latency_ms"`    // 耗时 (毫秒)

	// 业务上下文: payload 类型, orderHash 列表, 签名地址, 上游错误
	Context map[string]interface{} `json:"context" gorm:"serializer:json;type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

const (
	AuditKindOrder  = "order"
	AuditKindFill   = "fill"
	AuditKindCancel = "cancel"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// AuditFilter selects audit records. Zero fields match everything.
type AuditFilter struct {
	AccountID string
	Kind      string
	Limit     int
	From      *time.Time
	To        *time.Time
}

// Normalized clamps Limit into (0, MaxAuditLimit].
func (f AuditFilter) Normalized() AuditFilter {
	if f.Limit <= 0 || f.Limit > MaxAuditLimit {
		f.Limit = DefaultAuditLimit
	}
	return f
}

func (f AuditFilter) Match(e *AuditLog) bool {
	switch {
	case e == nil:
		return false
	case f.AccountID != "" && e.AccountID != f.AccountID:
		return false
	case f.Kind != "" && e.Kind != f.Kind:
		return false
	case f.From != nil && e.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && e.CreatedAt.After(*f.To):
		return false
	}
	return true
}
