package service

import (
	"context"
	"errors"
	"strings"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/metrics"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
)

type MerchantRepo interface {
	Get(ctx context.Context, id string) (*model.Merchant, error)
	Upsert(ctx context.Context, m *model.Merchant) error
}

// RiskService wires the pure scorer to merchant storage and metrics.
type RiskService struct {
	scorer *RiskScorer
	repo   MerchantRepo
}

func NewRiskService(scorer *RiskScorer, repo MerchantRepo) *RiskService {
	return &RiskService{scorer: scorer, repo: repo}
}

func (s *RiskService) Evaluate(m *model.Merchant) model.RiskScoreBreakdown {
	res := s.scorer.Score(m)
	metrics.RiskScores.Observe(float64(res.TotalScore))
	metrics.RiskLevels.WithLabelValues(string(res.Level)).Inc()
	if res.Level == model.RiskCritical {
		logger.Warn("merchant scored critical risk", "merchant_id", res.MerchantID, "score", res.TotalScore)
	}
	return res
}

func (s *RiskService) EvaluateMerchant(ctx context.Context, id string) (model.RiskScoreBreakdown, error) {
	m, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrMerchantNotFound) {
		return model.RiskScoreBreakdown{}, apperrors.New(apperrors.ErrNotFound, "merchant not found", err)
	}
	if err != nil {
		return model.RiskScoreBreakdown{}, err
	}
	return s.Evaluate(m), nil
}

func (s *RiskService) UpsertMerchant(ctx context.Context, m *model.Merchant) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return apperrors.NewInvalidRequest("merchant id is required")
	}
	return s.repo.Upsert(ctx, m)
}
