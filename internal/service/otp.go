package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/metrics"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
)

var (
	ErrInvalidPhone = errors.New("phone number must be in E.164 format")
	ErrOTPExpired   = errors.New("otp code expired or not found")
	ErrOTPMismatch  = errors.New("otp code does not match")
	ErrOTPAttempts  = errors.New("too many wrong otp codes")
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// OTPSender delivers a code over SMS or WhatsApp. Delivery itself lives outside this service.
type OTPSender interface {
	Send(ctx context.Context, phone, code string) (string, error)
}

type OTPCodeStore interface {
	Save(ctx context.Context, code *model.OTPCode) error
	Get(ctx context.Context, phone string) (*model.OTPCode, error)
	IncrementAttempts(ctx context.Context, phone string) (int, error)
	Delete(ctx context.Context, phone string) error
}

// LogOTPSender only logs the send with a masked code.
type LogOTPSender struct{}

func (LogOTPSender) Send(ctx context.Context, phone, code string) (string, error) {
	id := uuid.NewString()
	logger.Info("otp dispatched", "phone", maskPhone(phone), "code", maskCode(code), "message_id", id)
	return id, nil
}

type OTPOptions struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time
}

type OTPService struct {
	limiter *RateLimiter
	presets *Presets
	sender  OTPSender
	codes   OTPCodeStore
	opts    OTPOptions
}

func NewOTPService(limiter *RateLimiter, presets *Presets, sender OTPSender, codes OTPCodeStore, opts OTPOptions) *OTPService {
	if opts.Length <= 0 {
		opts.Length = 6
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &OTPService{
		limiter: limiter,
		presets: presets,
		sender:  sender,
		codes:   codes,
		opts:    opts,
	}
}

// Send guards the phone with otp_send before generating and dispatching a code.
func (s *OTPService) Send(ctx context.Context, phone string) (*model.OTPSendResult, error) {
	phone = strings.TrimSpace(phone)
	if !e164.MatchString(phone) {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, ErrInvalidPhone.Error(), ErrInvalidPhone)
	}

	res, err := s.limiter.Guard(ctx, FnOTPSend, phone, s.presets.MustGet(FnOTPSend))
	if err != nil {
		metrics.OTPSends.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	code, err := generateCode(s.opts.Length)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	expiresAt := s.opts.Now().Add(s.opts.TTL).UTC()
	if err := s.codes.Save(ctx, &model.OTPCode{
		Phone:     phone,
		CodeHash:  hashCode(phone, code),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	messageID, err := s.sender.Send(ctx, phone, code)
	if err != nil {
		metrics.OTPSends.WithLabelValues("failed").Inc()
		_ = s.codes.Delete(ctx, phone)
		return nil, apperrors.New(apperrors.ErrUpstream, "failed to deliver verification code", err)
	}
	metrics.OTPSends.WithLabelValues("sent").Inc()

	return &model.OTPSendResult{
		MessageID: messageID,
		ExpiresAt: expiresAt,
		Remaining: res.Remaining,
	}, nil
}

// Verify guards with otp_verify, then compares the code in constant time.
// A matched code is consumed.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	phone = strings.TrimSpace(phone)
	if !e164.MatchString(phone) {
		return apperrors.New(apperrors.ErrInvalidRequest, ErrInvalidPhone.Error(), ErrInvalidPhone)
	}

	if _, err := s.limiter.Guard(ctx, FnOTPVerify, phone, s.presets.MustGet(FnOTPVerify)); err != nil {
		return err
	}

	stored, err := s.codes.Get(ctx, phone)
	if errors.Is(err, repository.ErrOTPNotFound) {
		return apperrors.New(apperrors.ErrInvalidRequest, ErrOTPExpired.Error(), ErrOTPExpired)
	}
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if !s.opts.Now().Before(stored.ExpiresAt) {
		_ = s.codes.Delete(ctx, phone)
		return apperrors.New(apperrors.ErrInvalidRequest, ErrOTPExpired.Error(), ErrOTPExpired)
	}

	// The counter is the gate: every try reserves an attempt before the compare.
	attempt, err := s.codes.IncrementAttempts(ctx, phone)
	if errors.Is(err, repository.ErrOTPNotFound) {
		return apperrors.New(apperrors.ErrInvalidRequest, ErrOTPExpired.Error(), ErrOTPExpired)
	}
	if err != nil {
		return fmt.Errorf("count otp attempt: %w", err)
	}
	if attempt > s.opts.MaxAttempts {
		_ = s.codes.Delete(ctx, phone)
		return apperrors.New(apperrors.ErrInvalidRequest, ErrOTPAttempts.Error(), ErrOTPAttempts)
	}

	want := []byte(stored.CodeHash)
	got := []byte(hashCode(phone, strings.TrimSpace(code)))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return apperrors.New(apperrors.ErrInvalidRequest, ErrOTPMismatch.Error(), ErrOTPMismatch)
	}

	if err := s.codes.Delete(ctx, phone); err != nil {
		logger.Warn("otp consume failed", "phone", maskPhone(phone), "error", err)
	}
	return nil
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func hashCode(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

func maskCode(code string) string {
	if len(code) <= 2 {
		return "**"
	}
	return code[:1] + strings.Repeat("*", len(code)-2) + code[len(code)-1:]
}
