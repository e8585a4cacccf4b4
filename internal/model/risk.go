package model

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskComponents holds the five sub-scores, each in [0,100].
type RiskComponents struct {
	KYC              int `json:"kyc"`
	BusinessMaturity int `json:"businessMaturity"`
	Transaction      int `json:"transaction"`
	Compliance       int `json:"compliance"`
	Flags            int `json:"flags"`
}

// RiskScoreBreakdown is computed on demand and never persisted.
type RiskScoreBreakdown struct {
	MerchantID      string         `json:"merchantId,omitempty"`
	TotalScore      int            `json:"totalScore"`
	Level           RiskLevel      `json:"level"`
	Components      RiskComponents `json:"components"`
	Factors         []string       `json:"factors"`
	Recommendations []string       `json:"recommendations"`
	EvaluatedAt     time.Time      `json:"evaluatedAt"`
}
