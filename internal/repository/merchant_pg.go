package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type merchantRow struct {
	ID        string          `gorm:"primaryKey"`
	Status    string          `gorm:"not null"`
	Document  *model.Merchant `gorm:"serializer:json;type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (merchantRow) TableName() string { return "merchants" }

// PostgresMerchantRepo stores the merchant snapshot the risk scorer reads.
type PostgresMerchantRepo struct {
	db *gorm.DB
}

func NewPostgresMerchantRepo(db *gorm.DB) *PostgresMerchantRepo {
	return &PostgresMerchantRepo{db: db}
}

func (r *PostgresMerchantRepo) Get(ctx context.Context, id string) (*model.Merchant, error) {
	var row merchantRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.Document == nil {
		return &model.Merchant{ID: row.ID, Status: model.MerchantStatus(row.Status)}, nil
	}
	return row.Document, nil
}

func (r *PostgresMerchantRepo) Upsert(ctx context.Context, m *model.Merchant) error {
	row := merchantRow{
		ID:       m.ID,
		Status:   string(m.Status),
		Document: m,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "document", "updated_at"}),
	}).Create(&row).Error
}

// MemoryMerchantRepo is used when no database is configured.
type MemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[string]*model.Merchant
}

func NewMemoryMerchantRepo() *MemoryMerchantRepo {
	return &MemoryMerchantRepo{merchants: make(map[string]*model.Merchant)}
}

func (r *MemoryMerchantRepo) Get(ctx context.Context, id string) (*model.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, ErrMerchantNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryMerchantRepo) Upsert(ctx context.Context, m *model.Merchant) error {
	cp := *m
	r.mu.Lock()
	r.merchants[m.ID] = &cp
	r.mu.Unlock()
	return nil
}
