package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/redis/go-redis/v9"
)

// cleanupScan bounds how many tail entries one Cleanup call inspects.
const cleanupScan = 1000

// RedisAuditRepo keeps the newest audit entries in a capped list, newest first.
type RedisAuditRepo struct {
	client  *redis.Client
	listKey string
	listMax int
}

func NewRedisAuditRepo(client *RedisClient, keyPrefix, listKey string, listMax int) *RedisAuditRepo {
	if listKey == "" {
		listKey = "audit_logs"
	}
	if keyPrefix != "" {
		listKey = keyPrefix + ":" + listKey
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client.Client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.listKey, payload)
		pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
		return nil
	})
	return err
}

// List scans a bounded window of the list; filtered-out entries count against it.
func (r *RedisAuditRepo) List(ctx context.Context, actor string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fetch := min(max(limit*5, 100), r.listMax)

	items, err := r.client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]*model.AuditLog, 0, limit)
	for _, raw := range items {
		entry, ok := decodeAudit(raw)
		if !ok || !matchAudit(entry, actor, from, to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Cleanup drops entries older than the retention window from the tail.
// LTRIM with a negative end index leaves entries pushed meanwhile untouched.
func (r *RedisAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tail, err := r.client.LRange(ctx, r.listKey, -cleanupScan, -1).Result()
	if err != nil {
		return 0, err
	}

	var expired int64
	for i := len(tail) - 1; i >= 0; i-- {
		entry, ok := decodeAudit(tail[i])
		if ok && !entry.CreatedAt.Before(cutoff) {
			break
		}
		// undecodable entries are dropped along with expired ones
		expired++
	}
	if expired == 0 {
		return 0, nil
	}
	if err := r.client.LTrim(ctx, r.listKey, 0, -(expired + 1)).Err(); err != nil {
		return 0, err
	}
	return expired, nil
}

func decodeAudit(raw string) (*model.AuditLog, bool) {
	var entry model.AuditLog
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func matchAudit(entry *model.AuditLog, actor string, from, to *time.Time) bool {
	if actor != "" && entry.Actor != actor {
		return false
	}
	if from != nil && entry.CreatedAt.Before(*from) {
		return false
	}
	if to != nil && entry.CreatedAt.After(*to) {
		return false
	}
	return true
}
