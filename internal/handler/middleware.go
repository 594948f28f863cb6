package handler

import (
	"errors"
	"net/http"
	"time"

	"wallet-custody/internal/handler/response"
	"wallet-custody/internal/session"
	"wallet-custody/pkg/errno"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSessionID = "X-Session-ID"

	ctxSessionKey = "session"
)

// SessionMiddleware 由上游认证网关注入用户与会话标识，这里只负责绑定会话对象
func SessionMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		sessionID := c.GetHeader(HeaderSessionID)
		if userID == "" || sessionID == "" {
			response.Abort(c, http.StatusUnauthorized, errno.ErrTokenInvalid.WithMessage("missing user or session header"))
			return
		}

		sess, err := store.GetOrCreate(sessionID, userID)
		if err != nil {
			if errors.Is(err, session.ErrUserMismatch) {
				response.Abort(c, http.StatusUnauthorized, errno.ErrTokenInvalid.WithMessage(err.Error()))
				return
			}
			response.Abort(c, http.StatusInternalServerError, err)
			return
		}
		c.Set(ctxSessionKey, sess)
		c.Next()
	}
}

// CurrentSession 取出中间件绑定的会话
func CurrentSession(c *gin.Context) *session.Session {
	return c.MustGet(ctxSessionKey).(*session.Session)
}

// RateLimiter 按用户限流，空闲的 limiter 过期回收
type RateLimiter struct {
	limiters *gocache.Cache
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: gocache.New(10*time.Minute, time.Minute),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	if err := l.limiters.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// 并发创建，使用先写入的那个
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Allow 供测试与非 HTTP 调用方使用
func (l *RateLimiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderUserID)
		if key == "" {
			key = c.ClientIP()
		}
		if !l.Allow(key) {
			response.Abort(c, http.StatusTooManyRequests, errno.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
