package service

import (
	"testing"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scorerNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer() *RiskScorer {
	return NewRiskScorer(WithScorerClock(func() time.Time { return scorerNow }))
}

func cleanMerchant() *model.Merchant {
	created := scorerNow.AddDate(-1, 0, 0)
	submitted := scorerNow.AddDate(0, 0, -10)
	return &model.Merchant{
		ID:     "m-clean",
		Status: model.MerchantActive,
		BusinessInfo: model.BusinessInfo{
			BusinessName:       "Kofi's Provisions",
			BusinessType:       "retail",
			RegistrationNumber: "CS123456789",
			TaxID:              "P0012345678",
		},
		ContactInfo: model.ContactInfo{Email: "kofi@example.com", Phone: "+233241234567"},
		Address:     model.Address{Street: "12 Oxford St", City: "Accra", Country: "GH"},
		KYC: &model.KYCInfo{
			Status:             model.KYCApproved,
			DocumentsSubmitted: 6,
			DocumentsVerified:  6,
			SubmittedAt:        &submitted,
		},
		Financials: model.Financials{
			TotalTransactions: 200,
			TotalRevenue:      decimal.NewFromInt(200000),
			MonthlyVolume:     decimal.NewFromInt(20000),
		},
		BankDetails: &model.BankDetails{BankName: "GCB", AccountNumber: "1234567890", AccountName: "Kofi"},
		CreatedAt:   &created,
	}
}

func TestScore_CleanMerchantIsLow(t *testing.T) {
	res := newTestScorer().Score(cleanMerchant())

	assert.Equal(t, 0, res.Components.KYC)
	assert.Equal(t, 0, res.Components.Compliance)
	assert.Equal(t, 0, res.Components.BusinessMaturity)
	assert.Equal(t, 0, res.Components.Transaction)
	assert.Equal(t, 0, res.Components.Flags)
	assert.Equal(t, 0, res.TotalScore)
	assert.Equal(t, model.RiskLow, res.Level)
	assert.Equal(t, "m-clean", res.MerchantID)
	assert.Equal(t, scorerNow, res.EvaluatedAt)
	assert.Equal(t, []string{"No action needed; continue routine monitoring"}, res.Recommendations)
}

func TestScore_RejectedWithFraudFlagsIsCritical(t *testing.T) {
	m := cleanMerchant()
	m.Status = model.MerchantRejected
	m.AdminMetadata.Flags = []string{"Fraud report from bank", "possible FRAUD ring", "fraud chargeback"}

	res := newTestScorer().Score(m)

	assert.GreaterOrEqual(t, res.Components.Compliance, 80)
	assert.GreaterOrEqual(t, res.Components.Flags, 50)
	assert.GreaterOrEqual(t, res.TotalScore, 76)
	assert.Equal(t, model.RiskCritical, res.Level)
	assert.Contains(t, res.Recommendations, "Suspend payouts pending manual compliance review")
}

func TestScore_SingleCriticalFlagOnActiveMerchantNotEscalated(t *testing.T) {
	m := cleanMerchant()
	m.AdminMetadata.Flags = []string{"suspicious login"}

	res := newTestScorer().Score(m)

	assert.Equal(t, 40, res.Components.Flags)
	assert.Equal(t, 4, res.TotalScore)
	assert.Equal(t, model.RiskLow, res.Level)
}

func TestScore_WeightsUnroundedKYC(t *testing.T) {
	m := cleanMerchant()
	m.KYC = &model.KYCInfo{Status: model.KYCPending, DocumentsSubmitted: 3, DocumentsVerified: 1}

	res := newTestScorer().Score(m)

	// 30 + 15 + 13.33 = 58.33; 0.30 * 58.33 = 17.5 rounds up
	assert.Equal(t, 58, res.Components.KYC)
	assert.Equal(t, 18, res.TotalScore)
}

func TestScore_Idempotent(t *testing.T) {
	s := newTestScorer()
	m := cleanMerchant()
	m.Status = model.MerchantSuspended
	m.AdminMetadata.Flags = []string{"aml hit"}

	first := s.Score(m)
	second := s.Score(m)
	assert.Equal(t, first, second)
}

func TestScore_EmptyMerchantIsTotal(t *testing.T) {
	s := newTestScorer()

	var res model.RiskScoreBreakdown
	require.NotPanics(t, func() { res = s.Score(&model.Merchant{}) })

	assert.Equal(t, 90, res.Components.KYC)
	assert.Equal(t, 65, res.Components.BusinessMaturity)
	assert.Equal(t, 20, res.Components.Transaction)
	assert.Equal(t, 60, res.Components.Compliance)
	assert.Equal(t, 0, res.Components.Flags)
	assert.Equal(t, 54, res.TotalScore)
	assert.Equal(t, model.RiskHigh, res.Level)
	assert.NotEmpty(t, res.Factors)

	require.NotPanics(t, func() { s.Score(nil) })
}

func TestKYCScore(t *testing.T) {
	tests := []struct {
		name string
		kyc  *model.KYCInfo
		want int
	}{
		{name: "missing", kyc: nil, want: 90},
		{name: "approved complete", kyc: &model.KYCInfo{Status: model.KYCApproved, DocumentsSubmitted: 6, DocumentsVerified: 6}, want: 0},
		{name: "pending partial", kyc: &model.KYCInfo{Status: model.KYCPending, DocumentsSubmitted: 3, DocumentsVerified: 1}, want: 58},
		{name: "rejected none", kyc: &model.KYCInfo{Status: model.KYCRejected}, want: 100},
		{name: "unknown status", kyc: &model.KYCInfo{Status: "archived", DocumentsSubmitted: 6, DocumentsVerified: 6}, want: 40},
		{name: "oversubmitted", kyc: &model.KYCInfo{Status: model.KYCApproved, DocumentsSubmitted: 9, DocumentsVerified: 9}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &model.Merchant{KYC: tt.kyc}
			got := clampDecimal(kycScore(m, scorerNow)).Round(0).IntPart()
			assert.Equal(t, int64(tt.want), got)
		})
	}
}

func TestKYCScore_SubmissionAge(t *testing.T) {
	old := scorerNow.AddDate(0, 0, -100)
	mid := scorerNow.AddDate(0, 0, -45)
	base := model.KYCInfo{Status: model.KYCApproved, DocumentsSubmitted: 6, DocumentsVerified: 6}

	k := base
	k.SubmittedAt = &old
	assert.True(t, kycScore(&model.Merchant{KYC: &k}, scorerNow).Equal(decimal.NewFromInt(10)))

	k2 := base
	k2.SubmittedAt = &mid
	assert.True(t, kycScore(&model.Merchant{KYC: &k2}, scorerNow).Equal(decimal.NewFromInt(5)))
}

func TestMaturityScore(t *testing.T) {
	m := cleanMerchant()
	assert.Equal(t, 0, maturityScore(m, scorerNow))

	young := scorerNow.AddDate(0, 0, -3)
	m.CreatedAt = &young
	assert.Equal(t, 25, maturityScore(m, scorerNow))

	m.BusinessInfo.TaxID = ""
	assert.Equal(t, 40, maturityScore(m, scorerNow))

	m.BusinessInfo.RegistrationNumber = ""
	assert.Equal(t, 50, maturityScore(m, scorerNow))

	m.BusinessInfo.BusinessType = "Crypto Exchange"
	assert.Equal(t, 75, maturityScore(m, scorerNow))

	m.BusinessInfo.BusinessType = "online marketplace"
	assert.Equal(t, 65, maturityScore(m, scorerNow))
}

func TestTransactionScore(t *testing.T) {
	tests := []struct {
		name    string
		tx      int
		revenue int64
		monthly int64
		want    int
	}{
		{name: "no history", want: 20},
		{name: "few", tx: 5, revenue: 5000, monthly: 0, want: 15},
		{name: "some", tx: 20, revenue: 20000, monthly: 0, want: 10},
		{name: "spike", tx: 100, revenue: 100000, monthly: 250000, want: 30},
		{name: "no spike at exactly double", tx: 100, revenue: 100000, monthly: 200000, want: 0},
		{name: "large average", tx: 60, revenue: 60 * 60000, monthly: 0, want: 25},
		{name: "medium average", tx: 60, revenue: 60 * 25000, monthly: 0, want: 15},
		{name: "small large average", tx: 60, revenue: 60 * 15000, monthly: 0, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &model.Merchant{Financials: model.Financials{
				TotalTransactions: tt.tx,
				TotalRevenue:      decimal.NewFromInt(tt.revenue),
				MonthlyVolume:     decimal.NewFromInt(tt.monthly),
			}}
			assert.Equal(t, tt.want, transactionScore(m))
		})
	}
}

func TestComplianceScore(t *testing.T) {
	m := cleanMerchant()
	assert.Equal(t, 0, complianceScore(m))

	m.Status = "frozen"
	assert.Equal(t, 0, complianceScore(m))

	m.Status = model.MerchantClosed
	m.Address = model.Address{}
	m.BankDetails = nil
	assert.Equal(t, 160, complianceScore(m))
	assert.Equal(t, 100, clampScore(complianceScore(m)))

	m.Status = model.MerchantPending
	m.MobileMoney = &model.MobileMoneyDetails{Provider: "MTN", Number: "0241234567"}
	assert.Equal(t, 60, complianceScore(m))
}

func TestFlagsScore(t *testing.T) {
	m := &model.Merchant{}
	m.AdminMetadata.Flags = []string{"late docs", "AML screening hit"}
	assert.Equal(t, 55, flagsScore(m))

	m.AdminMetadata.Flags = []string{"a", "b", "c", "d", "fraud", "suspicious", "aml"}
	assert.Equal(t, 100, flagsScore(m))
}

func TestLevelFor(t *testing.T) {
	cases := map[int]model.RiskLevel{
		0: model.RiskLow, 25: model.RiskLow, 26: model.RiskMedium, 50: model.RiskMedium,
		51: model.RiskHigh, 75: model.RiskHigh, 76: model.RiskCritical, 100: model.RiskCritical,
	}
	for score, want := range cases {
		assert.Equal(t, want, levelFor(score), "score %d", score)
	}
}
