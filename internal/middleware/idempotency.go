package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderReplayed       = "X-Idempotent-Replayed"

	DefaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyRecord is a claimed key. Fingerprint binds it to one request so
// a reused key with a different body is refused instead of replayed.
type IdempotencyRecord struct {
	Fingerprint string
	Status      int
	Body        []byte
	CreatedAt   time.Time
	Processing  bool
}

type IdempotencyStore interface {
	// Acquire returns the stored record, or nil when the caller now holds key.
	Acquire(ctx context.Context, key, fingerprint string) (*IdempotencyRecord, error)
	Complete(ctx context.Context, key string, rec IdempotencyRecord) error
	Release(ctx context.Context, key string) error
}

// InMemIdempotencyStore is the single-instance fallback when redis is absent.
type InMemIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]*IdempotencyRecord // accountID:key
}

func NewInMemIdempotencyStore() *InMemIdempotencyStore {
	return &InMemIdempotencyStore{
		ttl:     DefaultIdempotencyTTL,
		now:     time.Now,
		records: make(map[string]*IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) Acquire(_ context.Context, key, fingerprint string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[key]; ok && now.Sub(rec.CreatedAt) < s.ttl {
		cp := *rec
		return &cp, nil
	}
	s.records[key] = &IdempotencyRecord{Fingerprint: fingerprint, Processing: true, CreatedAt: now}
	return nil, nil
}

func (s *InMemIdempotencyStore) Complete(_ context.Context, key string, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Processing = false
	rec.CreatedAt = s.now()
	s.records[key] = &rec
	return nil
}

func (s *InMemIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// requestFingerprint is keccak256(method, path, body).
func requestFingerprint(method, path string, body []byte) string {
	return crypto.Keccak256Hash([]byte(method), []byte{0}, []byte(path), []byte{0}, body).Hex()
}

// IdempotencyMiddleware replays the first successful response for a key.
// Failed attempts release the key so the client can retry.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}
		account, ok := AccountFromContext(c)
		if !ok {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		fullKey := account.ID + ":" + idemKey

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		fp := requestFingerprint(c.Request.Method, c.Request.URL.Path, body)

		record, err := store.Acquire(ctx, fullKey, fp)
		if err != nil {
			// Store outage must not block signing.
			logger.LogError(ctx, err, "idempotency store unavailable", "account_id", account.ID)
			c.Next()
			return
		}
		if record != nil {
			switch {
			case record.Fingerprint != "" && record.Fingerprint != fp:
				c.Error(apperrors.NewValidation(HeaderIdempotencyKey, "key was already used for a different request"))
			case record.Processing:
				c.Error(apperrors.New(apperrors.ErrInProgress, "request in progress", nil))
			default:
				c.Header(HeaderReplayed, "true")
				c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			}
			c.Abort()
			return
		}

		w := &responseBodyWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// ErrorHandler writes error bodies after this returns, so only clean
		// responses are stored.
		status := c.Writer.Status()
		if len(c.Errors) == 0 && status < http.StatusInternalServerError {
			err = store.Complete(ctx, fullKey, IdempotencyRecord{Fingerprint: fp, Status: status, Body: w.body})
		} else {
			err = store.Release(ctx, fullKey)
		}
		if err != nil {
			logger.LogError(ctx, err, "idempotency store update failed", "account_id", account.ID)
		}
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
