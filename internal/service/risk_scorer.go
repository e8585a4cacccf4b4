package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/shopspring/decimal"
)

const requiredKYCDocuments = 6

var (
	weightKYC         = decimal.RequireFromString("0.30")
	weightMaturity    = decimal.RequireFromString("0.20")
	weightTransaction = decimal.RequireFromString("0.25")
	weightCompliance  = decimal.RequireFromString("0.15")
	weightFlags       = decimal.RequireFromString("0.10")

	highRiskBusinessTypes   = []string{"crypto", "gambling", "adult", "forex", "cannabis"}
	mediumRiskBusinessTypes = []string{"marketplace", "crowdfunding", "subscription"}
	criticalFlagTerms       = []string{"fraud", "suspicious", "aml"}

	avgSizeHigh   = decimal.NewFromInt(50000)
	avgSizeMedium = decimal.NewFromInt(20000)
	avgSizeLow    = decimal.NewFromInt(10000)
)

const (
	tierCritical = 76
	tierHigh     = 51
	tierMedium   = 26

	// factor and recommendation threshold for a single component
	componentConcern = 40
)

// RiskScorer maps a merchant snapshot to a weighted 0-100 score. It holds no
// state besides the clock and is safe for concurrent use.
type RiskScorer struct {
	now func() time.Time
}

type RiskScorerOption func(*RiskScorer)

func WithScorerClock(now func() time.Time) RiskScorerOption {
	return func(s *RiskScorer) { s.now = now }
}

func NewRiskScorer(opts ...RiskScorerOption) *RiskScorer {
	s := &RiskScorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score never fails; missing sub-documents take their neutral branch.
func (s *RiskScorer) Score(m *model.Merchant) model.RiskScoreBreakdown {
	if m == nil {
		m = &model.Merchant{}
	}
	now := s.now().UTC()

	// KYC is the only fractional component; it is weighted unrounded.
	kyc := clampDecimal(kycScore(m, now))
	comp := model.RiskComponents{
		KYC:              int(kyc.Round(0).IntPart()),
		BusinessMaturity: clampScore(maturityScore(m, now)),
		Transaction:      clampScore(transactionScore(m)),
		Compliance:       clampScore(complianceScore(m)),
		Flags:            clampScore(flagsScore(m)),
	}

	total := weightKYC.Mul(kyc).
		Add(weightMaturity.Mul(decimal.NewFromInt(int64(comp.BusinessMaturity)))).
		Add(weightTransaction.Mul(decimal.NewFromInt(int64(comp.Transaction)))).
		Add(weightCompliance.Mul(decimal.NewFromInt(int64(comp.Compliance)))).
		Add(weightFlags.Mul(decimal.NewFromInt(int64(comp.Flags)))).
		Round(sumPrecision).Round(0).IntPart()
	score := clampScore(int(total))

	// Confirmed fraud signals on a rejected or closed account, or a pile of
	// them on any account, must never average out below critical.
	critical := countCriticalFlags(m.AdminMetadata.Flags)
	if (critical > 0 && comp.Compliance >= 80) || critical >= 3 {
		score = max(score, tierCritical)
	}

	level := levelFor(score)
	return model.RiskScoreBreakdown{
		MerchantID:      m.ID,
		TotalScore:      score,
		Level:           level,
		Components:      comp,
		Factors:         riskFactors(m, comp, now),
		Recommendations: riskRecommendations(m, comp, level),
		EvaluatedAt:     now,
	}
}

func levelFor(score int) model.RiskLevel {
	switch {
	case score >= tierCritical:
		return model.RiskCritical
	case score >= tierHigh:
		return model.RiskHigh
	case score >= tierMedium:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func kycStatusPenalty(kyc *model.KYCInfo) int {
	if kyc == nil {
		return 40
	}
	switch kyc.Status {
	case model.KYCApproved:
		return 0
	case model.KYCUnderReview, model.KYCSubmitted:
		return 15
	case model.KYCPending:
		return 30
	case model.KYCExpired:
		return 45
	case model.KYCRejected:
		return 50
	default:
		return 40
	}
}

func kycScore(m *model.Merchant, now time.Time) decimal.Decimal {
	kyc := m.KYC
	score := decimal.NewFromInt(int64(kycStatusPenalty(kyc)))

	submitted, verified := 0, 0
	if kyc != nil {
		submitted = min(max(kyc.DocumentsSubmitted, 0), requiredKYCDocuments)
		verified = min(max(kyc.DocumentsVerified, 0), submitted)
	}

	// (1 - submitted/6) * 30
	missing := decimal.NewFromInt(int64(requiredKYCDocuments - submitted))
	score = score.Add(missing.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(requiredKYCDocuments)))

	if submitted > 0 {
		// (1 - verified/submitted) * 20
		unverified := decimal.NewFromInt(int64(submitted - verified))
		score = score.Add(unverified.Mul(decimal.NewFromInt(20)).Div(decimal.NewFromInt(int64(submitted))))
	} else {
		score = score.Add(decimal.NewFromInt(20))
	}

	if kyc != nil && kyc.SubmittedAt != nil {
		age := now.Sub(*kyc.SubmittedAt)
		switch {
		case age > 90*24*time.Hour:
			score = score.Add(decimal.NewFromInt(10))
		case age > 30*24*time.Hour:
			score = score.Add(decimal.NewFromInt(5))
		}
	}
	return score
}

func accountAgeDays(m *model.Merchant, now time.Time) (int, bool) {
	if m.CreatedAt == nil || m.CreatedAt.IsZero() {
		return 0, false
	}
	return int(now.Sub(*m.CreatedAt) / (24 * time.Hour)), true
}

func maturityScore(m *model.Merchant, now time.Time) int {
	score := 0

	if days, ok := accountAgeDays(m, now); !ok {
		score += 15
	} else {
		switch {
		case days < 7:
			score += 25
		case days < 30:
			score += 20
		case days < 90:
			score += 10
		case days < 180:
			score += 5
		}
	}

	info := m.BusinessInfo
	if strings.TrimSpace(info.RegistrationNumber) == "" {
		score += 25
	} else if strings.TrimSpace(info.TaxID) == "" {
		score += 15
	}

	switch businessTypeRisk(info.BusinessType) {
	case "high":
		score += 25
	case "medium":
		score += 15
	}

	if strings.TrimSpace(m.ContactInfo.Email) == "" {
		score += 15
	}
	if strings.TrimSpace(m.ContactInfo.Phone) == "" {
		score += 10
	}
	return score
}

func businessTypeRisk(businessType string) string {
	t := strings.ToLower(businessType)
	if t == "" {
		return ""
	}
	if containsAny(t, highRiskBusinessTypes) != "" {
		return "high"
	}
	if containsAny(t, mediumRiskBusinessTypes) != "" {
		return "medium"
	}
	return ""
}

// averageTransactionSize returns revenue/transactions, or false without history.
func averageTransactionSize(f model.Financials) (decimal.Decimal, bool) {
	if f.TotalTransactions <= 0 || !f.TotalRevenue.IsPositive() {
		return decimal.Zero, false
	}
	return f.TotalRevenue.Div(decimal.NewFromInt(int64(f.TotalTransactions))), true
}

// hasVolumeSpike compares the monthly count implied by monthlyVolume at the
// historical average size against the whole transaction history.
func hasVolumeSpike(f model.Financials) bool {
	avg, ok := averageTransactionSize(f)
	if !ok || !f.MonthlyVolume.IsPositive() {
		return false
	}
	estimatedMonthly := f.MonthlyVolume.Div(avg)
	return estimatedMonthly.GreaterThan(decimal.NewFromInt(int64(2 * f.TotalTransactions)))
}

func transactionScore(m *model.Merchant) int {
	f := m.Financials
	score := 0

	switch {
	case f.TotalTransactions <= 0:
		score += 20
	case f.TotalTransactions < 10:
		score += 15
	case f.TotalTransactions < 50:
		score += 10
	}

	if hasVolumeSpike(f) {
		score += 30
	}

	if avg, ok := averageTransactionSize(f); ok {
		switch {
		case avg.GreaterThan(avgSizeHigh):
			score += 25
		case avg.GreaterThan(avgSizeMedium):
			score += 15
		case avg.GreaterThan(avgSizeLow):
			score += 10
		}
	}
	return score
}

func merchantStatusPenalty(status model.MerchantStatus) int {
	switch status {
	case model.MerchantPending:
		return 20
	case model.MerchantSuspended:
		return 60
	case model.MerchantRejected:
		return 80
	case model.MerchantClosed:
		return 100
	default:
		// active, and any status this build does not know about
		return 0
	}
}

func hasBankDetails(m *model.Merchant) bool {
	b := m.BankDetails
	return b != nil && (strings.TrimSpace(b.AccountNumber) != "" || strings.TrimSpace(b.BankName) != "")
}

func hasMobileMoney(m *model.Merchant) bool {
	mm := m.MobileMoney
	return mm != nil && (strings.TrimSpace(mm.Number) != "" || strings.TrimSpace(mm.Provider) != "")
}

func missingAddressFields(a model.Address) []string {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

func complianceScore(m *model.Merchant) int {
	score := merchantStatusPenalty(m.Status)
	score += 10 * len(missingAddressFields(m.Address))

	switch {
	case hasBankDetails(m):
	case hasMobileMoney(m):
		score += 10
	default:
		score += 30
	}
	return score
}

func countCriticalFlags(flags []string) int {
	n := 0
	for _, f := range flags {
		if containsAny(strings.ToLower(f), criticalFlagTerms) != "" {
			n++
		}
	}
	return n
}

func flagsScore(m *model.Merchant) int {
	flags := m.AdminMetadata.Flags
	return min(50, len(flags)*15) + min(50, countCriticalFlags(flags)*25)
}

func riskFactors(m *model.Merchant, c model.RiskComponents, now time.Time) []string {
	factors := make([]string, 0)

	if c.KYC > componentConcern {
		if m.KYC == nil {
			factors = append(factors, "No KYC information on file")
		} else {
			if m.KYC.Status != model.KYCApproved {
				factors = append(factors, fmt.Sprintf("KYC status is %s", displayOr(string(m.KYC.Status), "unknown")))
			}
			if m.KYC.DocumentsSubmitted < requiredKYCDocuments {
				factors = append(factors, fmt.Sprintf("Only %d of %d required KYC documents submitted",
					max(m.KYC.DocumentsSubmitted, 0), requiredKYCDocuments))
			}
			if m.KYC.DocumentsVerified < m.KYC.DocumentsSubmitted {
				factors = append(factors, fmt.Sprintf("%d KYC documents awaiting verification",
					m.KYC.DocumentsSubmitted-max(m.KYC.DocumentsVerified, 0)))
			}
		}
	}
	if m.KYC != nil && m.KYC.SubmittedAt != nil && now.Sub(*m.KYC.SubmittedAt) > 90*24*time.Hour {
		factors = append(factors, "KYC submission is older than 90 days")
	}

	if c.BusinessMaturity > componentConcern {
		if days, ok := accountAgeDays(m, now); !ok {
			factors = append(factors, "Account creation date unknown")
		} else if days < 30 {
			factors = append(factors, fmt.Sprintf("New account (%d days old)", days))
		}
		if strings.TrimSpace(m.BusinessInfo.RegistrationNumber) == "" {
			factors = append(factors, "No business registration number")
		} else if strings.TrimSpace(m.BusinessInfo.TaxID) == "" {
			factors = append(factors, "No tax ID on file")
		}
		if m.ContactInfo.Email == "" || m.ContactInfo.Phone == "" {
			factors = append(factors, "Incomplete contact information")
		}
	}
	switch businessTypeRisk(m.BusinessInfo.BusinessType) {
	case "high":
		factors = append(factors, fmt.Sprintf("High-risk business type: %s", m.BusinessInfo.BusinessType))
	case "medium":
		factors = append(factors, fmt.Sprintf("Elevated-risk business type: %s", m.BusinessInfo.BusinessType))
	}

	f := m.Financials
	if f.TotalTransactions <= 0 {
		factors = append(factors, "No transaction history")
	} else if f.TotalTransactions < 10 {
		factors = append(factors, "Limited transaction history")
	}
	if hasVolumeSpike(f) {
		factors = append(factors, "Monthly volume is unusually high relative to transaction history")
	}
	if avg, ok := averageTransactionSize(f); ok && avg.GreaterThan(avgSizeLow) {
		factors = append(factors, fmt.Sprintf("Large average transaction size (%s)", avg.StringFixed(2)))
	}

	if penalty := merchantStatusPenalty(m.Status); penalty > 0 {
		factors = append(factors, fmt.Sprintf("Merchant status is %s", m.Status))
	}
	if missing := missingAddressFields(m.Address); len(missing) > 0 {
		factors = append(factors, "Incomplete address: missing "+strings.Join(missing, ", "))
	}
	if !hasBankDetails(m) {
		if hasMobileMoney(m) {
			factors = append(factors, "Mobile money is the only payout method")
		} else {
			factors = append(factors, "No payout method on file")
		}
	}

	if n := len(m.AdminMetadata.Flags); n > 0 {
		factors = append(factors, fmt.Sprintf("%d admin flag(s) on account", n))
	}
	if n := countCriticalFlags(m.AdminMetadata.Flags); n > 0 {
		factors = append(factors, fmt.Sprintf("%d critical flag(s) mentioning fraud, suspicious activity or AML", n))
	}
	return factors
}

func riskRecommendations(m *model.Merchant, c model.RiskComponents, level model.RiskLevel) []string {
	recs := make([]string, 0)

	switch level {
	case model.RiskCritical:
		recs = append(recs, "Suspend payouts pending manual compliance review")
	case model.RiskHigh:
		recs = append(recs, "Schedule a manual account review")
	}

	if countCriticalFlags(m.AdminMetadata.Flags) > 0 {
		recs = append(recs, "Escalate flagged activity to the compliance team for fraud/AML investigation")
	}
	if c.KYC > componentConcern {
		recs = append(recs, "Request outstanding KYC documents and complete verification")
	}
	if c.BusinessMaturity > componentConcern {
		recs = append(recs, "Verify business registration and contact details")
	}
	if c.Transaction > componentConcern {
		recs = append(recs, "Review recent transaction patterns for anomalies")
	}
	if c.Compliance > componentConcern {
		recs = append(recs, "Resolve account status and complete address and payout details")
	} else if !hasBankDetails(m) {
		recs = append(recs, "Ask the merchant to add bank account details")
	}

	if len(recs) == 0 {
		recs = append(recs, "No action needed; continue routine monitoring")
	}
	return recs
}

func containsAny(s string, terms []string) string {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return term
		}
	}
	return ""
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

var scoreCeiling = decimal.NewFromInt(100)

// sumPrecision drops the digits decimal.Div truncates (58.33..*0.30 must land on 17.5).
const sumPrecision = 8

func clampDecimal(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(v, scoreCeiling)
}
