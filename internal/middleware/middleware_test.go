package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerSetsRetryHeaders(t *testing.T) {
	resetAt := time.Now().Add(90 * time.Second)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(apperrors.NewRateLimited("slow down", resetAt))
	})

	w := serve(r, http.MethodGet, "/x", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry < 89 || retry > 91 {
		t.Fatalf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}
	if w.Header().Get(HeaderRateLimitRemaining) != "0" {
		t.Fatalf("remaining header should be 0")
	}
	if !strings.Contains(w.Body.String(), `"code":"RATE_LIMITED"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestErrorHandlerWrapsUnknownErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(http.ErrBodyNotAllowed)
	})

	w := serve(r, http.MethodGet, "/x", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAdminMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.AdminKey = "s3cret"

	r := gin.New()
	r.Use(ErrorHandler(), AdminMiddleware(cfg))
	r.GET("/admin", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextActorKey))
	})

	if w := serve(r, http.MethodGet, "/admin", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: expected 401, got %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/admin", map[string]string{HeaderAdminKey: "s3cret"})
	if w.Code != http.StatusOK || w.Body.String() != ActorAdmin {
		t.Fatalf("valid key: got %d %q", w.Code, w.Body.String())
	}
}

func TestAPIRateLimitSeparatesReadsAndWrites(t *testing.T) {
	presets := service.NewPresets(map[string]config.PresetConfig{
		service.FnAPIWrite: {MaxRequests: 1, WindowSeconds: 60},
	})
	limiter := service.NewRateLimiter(service.NewMemoryRateLimitStore(), service.RateLimiterOptions{})

	r := gin.New()
	r.Use(ErrorHandler(), APIRateLimit(limiter, presets))
	r.GET("/thing", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/thing", func(c *gin.Context) { c.Status(http.StatusCreated) })

	if w := serve(r, http.MethodPost, "/thing", nil); w.Code != http.StatusCreated {
		t.Fatalf("first write: expected 201, got %d", w.Code)
	}
	w := serve(r, http.MethodPost, "/thing", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: expected 429, got %d", w.Code)
	}
	if w.Header().Get(HeaderRateLimitLimit) != "1" {
		t.Fatalf("limit header: %q", w.Header().Get(HeaderRateLimitLimit))
	}
	if w := serve(r, http.MethodGet, "/thing", nil); w.Code != http.StatusOK {
		t.Fatalf("read after write limit: expected 200, got %d", w.Code)
	}
}

func TestIdempotencyConflictWhileProcessing(t *testing.T) {
	store := repository.NewInMemIdempotencyStore(time.Minute)
	r := gin.New()
	r.Use(ErrorHandler(), IdempotencyMiddleware(store))

	var inner *httptest.ResponseRecorder
	r.POST("/send", func(c *gin.Context) {
		// a retry arriving while the first request is still running
		inner = serve(r, http.MethodPost, "/send", map[string]string{HeaderIdempotencyKey: "k1"})
		c.JSON(http.StatusOK, gin.H{"sent": true})
	})

	w := serve(r, http.MethodPost, "/send", map[string]string{HeaderIdempotencyKey: "k1"})
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("concurrent retry should conflict, got %+v", inner)
	}

	replay := serve(r, http.MethodPost, "/send", map[string]string{HeaderIdempotencyKey: "k1"})
	if replay.Header().Get("X-Idempotent-Replay") != "true" || replay.Body.String() != `{"sent":true}` {
		t.Fatalf("expected replay, got %d %s", replay.Code, replay.Body.String())
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	store := repository.NewInMemIdempotencyStore(time.Minute)
	calls := 0
	r := gin.New()
	r.Use(ErrorHandler(), IdempotencyMiddleware(store))
	r.POST("/send", func(c *gin.Context) {
		calls++
		_ = c.Error(apperrors.New(apperrors.ErrUpstream, "sms gateway down", nil))
	})

	headers := map[string]string{HeaderIdempotencyKey: "k2"}
	serve(r, http.MethodPost, "/send", headers)
	serve(r, http.MethodPost, "/send", headers)
	if calls != 2 {
		t.Fatalf("failed request should be retried, handler ran %d times", calls)
	}
}
