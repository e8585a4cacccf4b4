package repository

import "errors"

var (
	// ErrStoreContention is returned when optimistic retries on a hot key are exhausted.
	ErrStoreContention  = errors.New("rate limit store: too much contention")
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrOTPNotFound      = errors.New("otp code not found")
)
