package repository

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	defaultAuditPrefix  = "sxgate:audit:"
	defaultAuditListMax = 10000
	allAccountsList     = "_all"
)

// RedisAuditRepo keeps capped newest-first lists per account plus one list
// across accounts. Used when no database is configured.
type RedisAuditRepo struct {
	client  *RedisClient
	prefix  string
	listMax int
}

func NewRedisAuditRepo(client *RedisClient, prefix string, listMax int) *RedisAuditRepo {
	if prefix == "" {
		prefix = defaultAuditPrefix
	}
	if listMax <= 0 {
		listMax = defaultAuditListMax
	}
	return &RedisAuditRepo{client: client, prefix: prefix, listMax: listMax}
}

func (r *RedisAuditRepo) listKey(accountID string) string {
	if accountID == "" {
		accountID = allAccountsList
	}
	return r.prefix + accountID
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	keys := []string{r.listKey("")}
	if entry.AccountID != "" {
		keys = append(keys, r.listKey(entry.AccountID))
	}
	_, err = r.client.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.LPush(ctx, k, payload)
			pipe.LTrim(ctx, k, 0, int64(r.listMax-1))
		}
		return nil
	})
	return err
}

// List scans at most a few pages of the account's list; filters other than
// the account are applied client side.
func (r *RedisAuditRepo) List(ctx context.Context, f model.AuditFilter) ([]*model.AuditLog, error) {
	f = f.Normalized()
	fetch := f.Limit
	if f.Kind != "" || f.From != nil || f.To != nil {
		fetch = f.Limit * 5
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.Client.LRange(ctx, r.listKey(f.AccountID), 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	return filterAuditJSON(items, f), nil
}

// filterAuditJSON decodes newest-first JSON entries, skipping corrupt ones.
func filterAuditJSON(items []string, f model.AuditFilter) []*model.AuditLog {
	results := make([]*model.AuditLog, 0, len(items))
	for _, raw := range items {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if !f.Match(&entry) {
			continue
		}
		results = append(results, &entry)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results
}
