package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
)

const (
	auditQueueSize  = 1000
	auditBufferSize = 1000
)

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, f model.AuditFilter) ([]*model.AuditLog, error)
}

// AuditService fans audit records out to the repo and a daily JSONL file on
// one background goroutine. Recent records also stay in memory so listing
// works without a repo.
type AuditService struct {
	queue     chan *model.AuditLog
	file      *dailyFile
	recent    *auditBuffer
	repo      AuditRepo
	done      chan struct{}
	closeOnce sync.Once
}

// NewAuditService starts the writer. An empty logDir disables the JSONL
// file; a nil repo keeps records in memory only.
func NewAuditService(logDir string, repo AuditRepo) (*AuditService, error) {
	svc := &AuditService{
		queue:  make(chan *model.AuditLog, auditQueueSize),
		recent: newAuditBuffer(auditBufferSize),
		repo:   repo,
		done:   make(chan struct{}),
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, err
		}
		svc.file = &dailyFile{dir: logDir}
	}
	go svc.run()
	return svc, nil
}

// Log never blocks the request path; a full queue drops the record from
// the repo and file but it stays listable from memory.
func (s *AuditService) Log(entry *model.AuditLog) {
	if entry == nil {
		return
	}
	s.recent.Add(entry)
	select {
	case s.queue <- entry:
	default:
		logger.Warn("audit queue full, dropping entry", "request_id", entry.ID, "kind", entry.Kind)
	}
}

func (s *AuditService) List(ctx context.Context, f model.AuditFilter) ([]*model.AuditLog, error) {
	f = f.Normalized()
	if s.repo != nil {
		records, err := s.repo.List(ctx, f)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "audit repo list failed, serving recent records")
	}
	return s.recent.List(f), nil
}

func (s *AuditService) run() {
	defer close(s.done)
	for entry := range s.queue {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("audit repo insert failed", "error", err, "request_id", entry.ID)
			}
		}
		if s.file != nil {
			if err := s.file.Write(entry); err != nil {
				logger.Error("audit file write failed", "error", err, "request_id", entry.ID)
			}
		}
	}
}

// Close drains queued records and closes the file. Safe to call twice.
func (s *AuditService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
		if s.file != nil {
			s.file.Close()
		}
	})
}

// dailyFile appends JSON lines to audit-YYYY-MM-DD.jsonl, switching files
// when the UTC date of the record changes.
type dailyFile struct {
	dir string
	day string
	f   *os.File
	enc *json.Encoder
}

func (d *dailyFile) Write(entry *model.AuditLog) error {
	day := entry.CreatedAt.UTC().Format("2006-01-02")
	if entry.CreatedAt.IsZero() {
		day = time.Now().UTC().Format("2006-01-02")
	}
	if day != d.day || d.f == nil {
		d.Close()
		f, err := os.OpenFile(filepath.Join(d.dir, "audit-"+day+".jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		d.f, d.day, d.enc = f, day, json.NewEncoder(f)
	}
	return d.enc.Encode(entry)
}

func (d *dailyFile) Close() {
	if d.f != nil {
		_ = d.f.Close()
		d.f, d.enc = nil, nil
	}
}

// auditBuffer is a fixed-size ring of the latest records.
type auditBuffer struct {
	mu   sync.Mutex
	ring []*model.AuditLog
	next int
	full bool
}

func newAuditBuffer(size int) *auditBuffer {
	if size <= 0 {
		size = auditBufferSize
	}
	return &auditBuffer{ring: make([]*model.AuditLog, size)}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring[b.next] = entry
	b.next = (b.next + 1) % len(b.ring)
	if b.next == 0 {
		b.full = true
	}
}

// List returns matches newest first, at most f.Limit (all when Limit <= 0).
func (b *auditBuffer) List(f model.AuditFilter) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.next
	if b.full {
		n = len(b.ring)
	}
	var out []*model.AuditLog
	for i := 1; i <= n; i++ {
		entry := b.ring[(b.next-i+len(b.ring))%len(b.ring)]
		if !f.Match(entry) {
			continue
		}
		out = append(out, entry)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
