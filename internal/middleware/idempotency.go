package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if the key exists; (nil, false) if the caller now holds it.
	GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool, error)
	Save(ctx context.Context, key string, status int, body []byte) error
	Unlock(ctx context.Context, key string) error
}

// IdempotencyMiddleware replays the first response for a repeated X-Idempotency-Key,
// so a retried OTP send neither re-sends a code nor consumes another rate limit slot.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 检查 Header
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}

		actor := c.GetString(ContextActorKey)
		if actor == "" {
			actor = c.ClientIP()
		}
		fullKey := actor + ":" + c.Request.Method + ":" + c.FullPath() + ":" + idemKey
		ctx := c.Request.Context()

		// 2. 检查存储；存储故障时放行，不阻断业务
		record, hit, err := store.GetOrLock(ctx, fullKey)
		if err != nil {
			logger.Warn("idempotency store unavailable, processing request", "error", err)
			c.Next()
			return
		}
		if hit {
			if record.Processing {
				_ = c.Error(apperrors.New(apperrors.ErrConflict, "request with this idempotency key is in progress", nil))
				c.Abort()
				return
			}
			// 已处理完成：直接返回缓存的响应
			c.Header("X-Idempotent-Replay", "true")
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		// 3. 捕获响应
		w := &responseBodyWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// 4. 5xx 允许重试，解锁但不保存结果
		if c.Writer.Status() < 500 && len(c.Errors) == 0 {
			err = store.Save(ctx, fullKey, c.Writer.Status(), w.body)
		} else {
			err = store.Unlock(ctx, fullKey)
		}
		if err != nil {
			logger.Warn("idempotency store update failed", "error", err)
		}
	}
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
