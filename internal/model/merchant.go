package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MerchantStatus string

const (
	MerchantPending   MerchantStatus = "pending"
	MerchantActive    MerchantStatus = "active"
	MerchantSuspended MerchantStatus = "suspended"
	MerchantRejected  MerchantStatus = "rejected"
	MerchantClosed    MerchantStatus = "closed"
)

type KYCStatus string

const (
	KYCApproved    KYCStatus = "approved"
	KYCUnderReview KYCStatus = "under_review"
	KYCSubmitted   KYCStatus = "submitted"
	KYCPending     KYCStatus = "pending"
	KYCExpired     KYCStatus = "expired"
	KYCRejected    KYCStatus = "rejected"
)

// Merchant is the snapshot the risk scorer reads. Every sub-document is optional.
type Merchant struct {
	ID            string              `json:"id"`
	Status        MerchantStatus      `json:"status"`
	BusinessInfo  BusinessInfo        `json:"businessInfo"`
	ContactInfo   ContactInfo         `json:"contactInfo"`
	Address       Address             `json:"address"`
	Subscription  *Subscription       `json:"subscription,omitempty"`
	KYC           *KYCInfo            `json:"kyc,omitempty"`
	Financials    Financials          `json:"financials"`
	BankDetails   *BankDetails        `json:"bankDetails,omitempty"`
	MobileMoney   *MobileMoneyDetails `json:"mobileMoney,omitempty"`
	AdminMetadata AdminMetadata       `json:"adminMetadata"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
}

type BusinessInfo struct {
	BusinessName       string `json:"businessName"`
	BusinessType       string `json:"businessType"`
	RegistrationNumber string `json:"registrationNumber"`
	TaxID              string `json:"taxId"`
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

type Subscription struct {
	PlanID string `json:"planId"`
	Status string `json:"status"`
}

type KYCInfo struct {
	Status             KYCStatus  `json:"status"`
	DocumentsSubmitted int        `json:"documentsSubmitted"`
	DocumentsVerified  int        `json:"documentsVerified"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
}

// Financials 使用 decimal 保存金额，避免浮点误差进入存储
type Financials struct {
	TotalTransactions int             `json:"totalTransactions"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	MonthlyVolume     decimal.Decimal `json:"monthlyVolume"`
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

type MobileMoneyDetails struct {
	Provider    string `json:"provider"`
	Number      string `json:"number"`
	AccountName string `json:"accountName"`
}

type AdminMetadata struct {
	Flags []string `json:"flags"`
	Notes string   `json:"notes,omitempty"`
}
