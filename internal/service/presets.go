package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
)

// Protected function names.
const (
	FnOTPSend           = "otp_send"
	FnOTPVerify         = "otp_verify"
	FnLogin             = "login"
	FnPasswordReset     = "password_reset"
	FnPayoutRequest     = "payout_request"
	FnPaymentLinkCreate = "payment_link_create"
	FnWebhook           = "webhook"
	FnAPIRead           = "api_read"
	FnAPIWrite          = "api_write"
)

var defaultPresets = map[string]model.RateLimitConfig{
	FnOTPSend: {
		MaxRequests: 5,
		Window:      time.Hour,
		Message:     "Too many OTP requests. Please try again later.",
	},
	FnOTPVerify: {
		MaxRequests: 10,
		Window:      10 * time.Minute,
		Message:     "Too many verification attempts. Please try again later.",
	},
	FnLogin: {
		MaxRequests: 10,
		Window:      15 * time.Minute,
		Message:     "Too many login attempts. Please try again later.",
	},
	FnPasswordReset: {
		MaxRequests: 3,
		Window:      time.Hour,
		Message:     "Too many password reset requests. Please try again later.",
	},
	FnPayoutRequest: {
		MaxRequests: 10,
		Window:      time.Hour,
		Message:     "Too many payout requests. Please try again later.",
	},
	FnPaymentLinkCreate: {
		MaxRequests: 100,
		Window:      time.Hour,
		Message:     "Payment link creation limit reached. Please try again later.",
	},
	FnWebhook: {
		MaxRequests: 1000,
		Window:      time.Minute,
		Message:     "Webhook rate limit exceeded.",
	},
	FnAPIRead: {
		MaxRequests: 1000,
		Window:      time.Hour,
		Message:     "API read limit exceeded.",
	},
	FnAPIWrite: {
		MaxRequests: 500,
		Window:      time.Hour,
		Message:     "API write limit exceeded.",
	},
}

// Presets resolves named limiter configs, built-ins first then config overrides.
type Presets struct {
	byName map[string]model.RateLimitConfig
}

func NewPresets(overrides map[string]config.PresetConfig) *Presets {
	p := &Presets{byName: make(map[string]model.RateLimitConfig, len(defaultPresets))}
	for name, cfg := range defaultPresets {
		p.byName[name] = cfg
	}
	for name, o := range overrides {
		cfg := p.byName[name]
		cfg.MaxRequests = o.MaxRequests
		cfg.Window = time.Duration(o.WindowSeconds) * time.Second
		if o.Message != "" {
			cfg.Message = o.Message
		}
		p.byName[name] = cfg
	}
	return p
}

func (p *Presets) Get(name string) (model.RateLimitConfig, error) {
	cfg, ok := p.byName[name]
	if !ok {
		return model.RateLimitConfig{}, fmt.Errorf("unknown rate limit preset %q", name)
	}
	return cfg, nil
}

// MustGet is for the fixed names above; it panics on a typo at startup.
func (p *Presets) MustGet(name string) model.RateLimitConfig {
	cfg, err := p.Get(name)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
