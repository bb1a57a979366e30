package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextAuditLog = "audit_log"
	HeaderRequestID = "X-Request-ID"

	// maxAuditBody caps how much of each body is kept per record.
	maxAuditBody = 64 << 10
	redactedMark = "***"
)

// sensitivePrefixes carry signatures or credentials in their bodies.
var sensitivePrefixes = []string{"/v1/orders", "/v1/fills", "/v1/cancels", "/admin"}

var sensitiveKeys = map[string]struct{}{
	"api_key": {}, "apikey": {}, "private_key": {}, "privatekey": {}, "key": {},
	"signature": {}, "sig": {}, "takersig": {}, "admin_key": {},
}

// captureWriter tees the response into a bounded buffer.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if room := maxAuditBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware records every request except skipPaths (health, metrics).
// Handlers add payload details through AddAuditContext.
func AuditMiddleware(auditSvc *service.AuditService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		reqID := requestID(c.GetHeader(HeaderRequestID))
		c.Header(HeaderRequestID, reqID)

		var reqBody []byte
		if c.Request.Body != nil {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(reqBody))
		}

		entry := &model.AuditLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: start,
			Context:   make(map[string]interface{}),
		}
		if k := c.GetHeader(HeaderIdempotencyKey); k != "" {
			entry.RequestHeader = HeaderIdempotencyKey + ": " + k
		}
		c.Set(ContextAuditLog, entry)

		cw := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = cw

		c.Next()

		if account, ok := AccountFromContext(c); ok {
			entry.AccountID = account.ID
		}
		if last := c.Errors.Last(); last != nil {
			var appErr *apperrors.AppError
			if errors.As(last.Err, &appErr) {
				entry.Context["error_code"] = string(appErr.Type)
			}
		}
		entry.RequestBody = redactAuditBody(entry.Path, reqBody)
		entry.StatusCode = c.Writer.Status()
		entry.ResponseBody = redactAuditBody(entry.Path, cw.body.Bytes())
		entry.LatencyMs = time.Since(start).Milliseconds()

		auditSvc.Log(entry)
	}
}

// requestID keeps a caller supplied UUID so clients can correlate records.
func requestID(header string) string {
	if id, err := uuid.Parse(strings.TrimSpace(header)); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// AddAuditContext attaches a business field to the current audit record.
func AddAuditContext(c *gin.Context, key string, value interface{}) {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*model.AuditLog); ok {
			entry.Context[key] = value
		}
	}
}

// SetAuditKind tags the current record with the payload kind it produced.
func SetAuditKind(c *gin.Context, kind string) {
	if val, exists := c.Get(ContextAuditLog); exists {
		if entry, ok := val.(*model.AuditLog); ok {
			entry.Kind = kind
		}
	}
}

func redactAuditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !isSensitivePath(path) {
		return truncateBody(body)
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[redacted]"
	}
	out, err := json.Marshal(redactValue(data))
	if err != nil {
		return "[redacted]"
	}
	return truncateBody(out)
}

func truncateBody(b []byte) string {
	if len(b) > maxAuditBody {
		return string(b[:maxAuditBody]) + "...[truncated]"
	}
	return string(b)
}

func isSensitivePath(path string) bool {
	for _, p := range sensitivePrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// redactValue masks sensitive keys at any depth.
func redactValue(v interface{}) interface{} {
	switch raw := v.(type) {
	case map[string]interface{}:
		for key, val := range raw {
			if _, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
				raw[key] = redactedMark
				continue
			}
			raw[key] = redactValue(val)
		}
	case []interface{}:
		for i, val := range raw {
			raw[i] = redactValue(val)
		}
	}
	return v
}
