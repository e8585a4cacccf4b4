package middleware

import (
	"encoding/json"
	"testing"
)

func TestRedactAuditBodyOTP(t *testing.T) {
	body := []byte(`{"phone":"+233241234567","code":"123456"}`)
	out := redactAuditBody("/v1/otp/verify", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["code"] == "123456" {
		t.Fatalf("code not redacted")
	}
	if data["phone"] != "+233241234567" {
		t.Fatalf("phone should be kept for audit")
	}
}

func TestRedactAuditBodyMerchantNested(t *testing.T) {
	body := []byte(`{"id":"m-1","bankDetails":{"bankName":"GCB","accountNumber":"1234567890"},"mobileMoney":{"provider":"MTN","number":"0241234567"}}`)
	out := redactAuditBody("/v1/admin/merchants/m-1", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	bank, _ := data["bankDetails"].(map[string]interface{})
	if bank["accountNumber"] == "1234567890" {
		t.Fatalf("account number not redacted")
	}
	if bank["bankName"] != "GCB" {
		t.Fatalf("bank name should be kept")
	}
	mm, _ := data["mobileMoney"].(map[string]interface{})
	if mm["number"] == "0241234567" {
		t.Fatalf("mobile money number not redacted")
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"ok":true}`)
	out := redactAuditBody("/health", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on non-sensitive path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	body := []byte("not-json")
	out := redactAuditBody("/v1/otp/send", body)
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json")
	}
}
