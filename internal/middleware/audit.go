package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

const (
	ContextAuditLog = "audit_log"
	HeaderRequestID = "X-Request-ID"

	// bodies above this size are stored truncated
	maxAuditBody = 16 << 10
)

// captureWriter tees the response into a buffer for the audit entry.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxAuditBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// AuditMiddleware records every request except skipPaths (health and metrics probes).
// Sensitive bodies (OTP codes, merchant bank data) are redacted before they are queued.
func AuditMiddleware(auditSvc *service.AuditService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok || auditSvc == nil {
			c.Next()
			return
		}

		entry := newAuditEntry(c)
		c.Header(HeaderRequestID, entry.ID)
		c.Set(ContextAuditLog, entry)

		reqBody := readAndRestoreBody(c)
		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// admin 请求记为 admin，其余按客户端 IP
		entry.Actor = entry.IP
		if actor := c.GetString(ContextActorKey); actor != "" {
			entry.Actor = actor
		}
		if last := c.Errors.Last(); last != nil {
			var appErr *apperrors.AppError
			if errors.As(last.Err, &appErr) {
				entry.Context["error_code"] = appErr.Type
			}
		}
		entry.RequestBody = redactAuditBody(entry.Path, reqBody)
		entry.ResponseBody = redactAuditBody(entry.Path, w.body.Bytes())
		entry.StatusCode = c.Writer.Status()
		entry.LatencyMs = time.Since(entry.CreatedAt).Milliseconds()

		auditSvc.Log(entry)
	}
}

// newAuditEntry keeps an inbound request ID when it is a valid UUID.
func newAuditEntry(c *gin.Context) *model.AuditLog {
	reqID := c.GetHeader(HeaderRequestID)
	if _, err := uuid.Parse(reqID); err != nil {
		reqID = uuid.NewString()
	}
	return &model.AuditLog{
		ID:        reqID,
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		CreatedAt: time.Now().UTC(),
		Context:   make(map[string]interface{}),
	}
}

// readAndRestoreBody returns the request body and puts it back for ShouldBindJSON.
func readAndRestoreBody(c *gin.Context) []byte {
	if c.Request.Body == nil {
		return nil
	}
	raw, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) > maxAuditBody {
		return raw[:maxAuditBody]
	}
	return raw
}

// AddAuditContext lets handlers attach business fields (merchant id, risk level, ...).
func AddAuditContext(c *gin.Context, key string, value interface{}) {
	val, ok := c.Get(ContextAuditLog)
	if !ok {
		return
	}
	if entry, ok := val.(*model.AuditLog); ok {
		entry.Context[key] = value
	}
}

var sensitivePathPrefixes = []string{
	"/v1/otp",
	"/v1/admin/merchants",
	"/v1/admin/risk",
}

func redactAuditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !isSensitivePath(path) {
		return string(body)
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		// truncated or non-JSON: store nothing readable
		return "[redacted]"
	}
	out, err := json.Marshal(redactValue(data))
	if err != nil {
		return "[redacted]"
	}
	return string(out)
}

func isSensitivePath(path string) bool {
	for _, p := range sensitivePathPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func redactValue(v interface{}) interface{} {
	switch raw := v.(type) {
	case map[string]interface{}:
		for key, val := range raw {
			if isSensitiveKey(key) {
				raw[key] = "***"
			} else {
				raw[key] = redactValue(val)
			}
		}
	case []interface{}:
		for i, val := range raw {
			raw[i] = redactValue(val)
		}
	}
	return v
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "code", "otp", "admin_key",
		"accountnumber", "account_number", "number",
		"taxid", "tax_id", "registrationnumber":
		return true
	}
	return false
}
