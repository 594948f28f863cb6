package renewal

import (
	"context"
	"errors"
	"time"

	"wallet-custody/internal/session"
	"wallet-custody/internal/store"
	"wallet-custody/pkg/cache"
	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/monitor"

	"go.uber.org/zap"
)

// CredentialStore API 钱包的读取与续期，*store.Store 满足该接口
type CredentialStore interface {
	CredentialStatus(ctx context.Context, userID string) (*store.CredentialStatus, error)
	RenewCredential(ctx context.Context, userID string) (*store.CredentialStatus, error)
}

// Phase 一次检查后凭证所处阶段
type Phase string

const (
	PhaseHealthy  Phase = "healthy"
	PhaseWarning  Phase = "warning"
	PhaseRenewing Phase = "renewing"
	PhaseRenewed  Phase = "renewed"
)

type Options struct {
	HealthyAfter    time.Duration
	RenewWithin     time.Duration
	AttemptWindow   time.Duration
	FailureCooldown time.Duration
	StatusCacheTTL  time.Duration
}

func (o *Options) applyDefaults() {
	if o.HealthyAfter <= 0 {
		o.HealthyAfter = 48 * time.Hour
	}
	if o.RenewWithin <= 0 {
		o.RenewWithin = 24 * time.Hour
	}
	if o.AttemptWindow <= 0 {
		o.AttemptWindow = 10 * time.Minute
	}
	if o.FailureCooldown <= 0 {
		o.FailureCooldown = 5 * time.Minute
	}
	if o.StatusCacheTTL <= 0 {
		o.StatusCacheTTL = 30 * time.Second
	}
}

type Controller struct {
	store CredentialStore
	cache cache.Cache
	opts  Options
	now   func() time.Time
}

func NewController(store CredentialStore, c cache.Cache, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{store: store, cache: c, opts: opts, now: time.Now}
}

// WithClock 替换时钟
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

func statusKey(userID string) string {
	return "credential:status:" + userID
}

// Status 读取凭证状态，优先走缓存
func (c *Controller) Status(ctx context.Context, userID string) (*store.CredentialStatus, error) {
	var cached store.CredentialStatus
	err := c.cache.Get(ctx, statusKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("读取凭证缓存失败", zap.String("user_id", userID), zap.Error(err))
	}

	status, err := c.store.CredentialStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, statusKey(userID), status, c.opts.StatusCacheTTL); err != nil {
		logger.Warn("写入凭证缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
	return status, nil
}

func (c *Controller) invalidate(ctx context.Context, userID string) {
	if err := c.cache.Delete(ctx, statusKey(userID)); err != nil {
		logger.Warn("清除凭证缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// Tick 检查一次凭证并在需要时续期。
//
//	剩余 > HealthyAfter        清空续期簿记
//	RenewWithin < 剩余 <= HealthyAfter  仅告警
//	剩余 <= RenewWithin 或已过期  无进行中的续期且 AttemptWindow 内未尝试过时续期一次
//
// 续期失败只记录并开始冷却，不返回错误；冷却结束后允许再次尝试。
func (c *Controller) Tick(ctx context.Context, sess *session.Session) (Phase, error) {
	status, err := c.Status(ctx, sess.UserID)
	if err != nil {
		return "", err
	}

	now := c.now()
	remaining := status.Remaining(now)

	switch {
	case remaining > c.opts.HealthyAfter:
		sess.Renewal(func(r *session.RenewalState) { *r = session.RenewalState{} })
		return PhaseHealthy, nil
	case remaining > c.opts.RenewWithin:
		logger.Debug("API 钱包即将过期",
			zap.String("user_id", sess.UserID),
			zap.Duration("remaining", remaining))
		return PhaseWarning, nil
	}

	attempt := false
	sess.Renewal(func(r *session.RenewalState) {
		if !r.FailedAt.IsZero() && now.Sub(r.FailedAt) >= c.opts.FailureCooldown {
			r.Attempted = false
			r.FailedAt = time.Time{}
		}
		if r.InFlight {
			return
		}
		if r.Attempted && now.Sub(r.LastAttempt) < c.opts.AttemptWindow {
			return
		}
		r.InFlight = true
		r.Attempted = true
		r.LastAttempt = now
		attempt = true
	})
	if !attempt {
		return PhaseRenewing, nil
	}

	renewed, err := c.store.RenewCredential(ctx, sess.UserID)
	if err != nil {
		sess.Renewal(func(r *session.RenewalState) {
			r.InFlight = false
			r.FailedAt = c.now()
		})
		monitor.Business.CredentialRenewalTotal.WithLabelValues("failed").Inc()
		logger.Warn("API 钱包续期失败", zap.String("user_id", sess.UserID), zap.Error(err))
		return PhaseRenewing, nil
	}

	sess.Renewal(func(r *session.RenewalState) {
		r.InFlight = false
		r.FailedAt = time.Time{}
	})
	c.invalidate(ctx, sess.UserID)
	monitor.Business.CredentialRenewalTotal.WithLabelValues("renewed").Inc()

	fields := []zap.Field{zap.String("user_id", sess.UserID)}
	if renewed != nil && renewed.ExpiresAt != nil {
		fields = append(fields, zap.Time("expires_at", *renewed.ExpiresAt))
	}
	logger.Info("API 钱包已续期", fields...)
	return PhaseRenewed, nil
}

// RenewNow 用户主动续期。与定时检查共用 InFlight 标志，错误同步返回。
func (c *Controller) RenewNow(ctx context.Context, sess *session.Session) (*store.CredentialStatus, error) {
	busy := false
	sess.Renewal(func(r *session.RenewalState) {
		if r.InFlight {
			busy = true
			return
		}
		r.InFlight = true
	})
	if busy {
		return c.Status(ctx, sess.UserID)
	}
	defer sess.Renewal(func(r *session.RenewalState) { r.InFlight = false })

	status, err := c.store.RenewCredential(ctx, sess.UserID)
	if err != nil {
		monitor.Business.CredentialRenewalTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	c.invalidate(ctx, sess.UserID)
	monitor.Business.CredentialRenewalTotal.WithLabelValues("renewed").Inc()
	return status, nil
}
