package model

import "time"

type OTPSendRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type OTPVerifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type OTPSendResult struct {
	MessageID string    `json:"message_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining int       `json:"remaining"` // sends left in the current window
}

// OTPCode is a pending one-time code. Only the hash is kept.
type OTPCode struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}
