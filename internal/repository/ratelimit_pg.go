package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rateLimitRow struct {
	Key          string      `gorm:"primaryKey"`
	FunctionName string      `gorm:"not null"`
	Identifier   string      `gorm:"not null"`
	Requests     []time.Time `gorm:"serializer:json;type:jsonb"`
	// timestamps come from the database clock, never from gorm
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (rateLimitRow) TableName() string { return "rate_limits" }

func (r *rateLimitRow) toModel() *model.RateLimitRecord {
	return &model.RateLimitRecord{
		Key:          r.Key,
		FunctionName: r.FunctionName,
		Identifier:   r.Identifier,
		Requests:     r.Requests,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// PostgresRateLimitRepo serializes updates per key with SELECT ... FOR UPDATE.
type PostgresRateLimitRepo struct {
	db *gorm.DB
}

func NewPostgresRateLimitRepo(db *gorm.DB) *PostgresRateLimitRepo {
	return &PostgresRateLimitRepo{db: db}
}

func (r *PostgresRateLimitRepo) Update(ctx context.Context, key model.RateLimitKey, fn model.RateLimitMutation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Seed an empty row so concurrent first requests queue on the same row lock.
		seed := tx.Exec(`
			INSERT INTO rate_limits (key, function_name, identifier, requests, created_at, updated_at)
			VALUES (?, ?, ?, '[]'::jsonb, clock_timestamp(), clock_timestamp())
			ON CONFLICT (key) DO NOTHING
		`, key.Key, key.FunctionName, key.Identifier)
		if seed.Error != nil {
			return seed.Error
		}
		fresh := seed.RowsAffected == 1

		var row rateLimitRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key.Key).
			Take(&row).Error; err != nil {
			return err
		}

		var now time.Time
		if err := tx.Raw("SELECT clock_timestamp()").Scan(&now).Error; err != nil {
			return err
		}

		var current *model.RateLimitRecord
		if !fresh {
			current = row.toModel()
		}
		next, err := fn(current, now)
		if err != nil {
			return err
		}
		if next == nil {
			if fresh {
				// nothing to persist; drop the seed
				return tx.Where("key = ?", key.Key).Delete(&rateLimitRow{}).Error
			}
			return nil
		}

		row.FunctionName = next.FunctionName
		row.Identifier = next.Identifier
		row.Requests = next.Requests
		row.CreatedAt = next.CreatedAt
		row.UpdatedAt = next.UpdatedAt
		return tx.Save(&row).Error
	})
}

func (r *PostgresRateLimitRepo) Get(ctx context.Context, key string) (*model.RateLimitRecord, time.Time, error) {
	db := r.db.WithContext(ctx)

	var now time.Time
	if err := db.Raw("SELECT now()").Scan(&now).Error; err != nil {
		return nil, time.Time{}, err
	}

	var row rateLimitRow
	err := db.Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, now, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return row.toModel(), now, nil
}

func (r *PostgresRateLimitRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&rateLimitRow{}).Error
}

// DeleteStale skips rows locked by in-flight checks; they are not stale anyway.
func (r *PostgresRateLimitRepo) DeleteStale(ctx context.Context, olderThan time.Duration, limit int) (model.SweepBatch, error) {
	res := r.db.WithContext(ctx).Exec(`
		DELETE FROM rate_limits
		WHERE key IN (
			SELECT key FROM rate_limits
			WHERE updated_at < now() - make_interval(secs => ?)
			ORDER BY updated_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
	`, olderThan.Seconds(), limit)
	if res.Error != nil {
		return model.SweepBatch{}, res.Error
	}
	n := int(res.RowsAffected)
	return model.SweepBatch{Scanned: n, Deleted: n}, nil
}

func (r *PostgresRateLimitRepo) List(ctx context.Context, prefix string, limit int) ([]*model.RateLimitRecord, error) {
	var rows []rateLimitRow
	q := r.db.WithContext(ctx).Order("key").Limit(limit)
	if prefix != "" {
		q = q.Where("key LIKE ?", escapeLike(prefix)+"%")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.RateLimitRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
