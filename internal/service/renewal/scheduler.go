package renewal

import (
	"context"
	"fmt"
	"time"

	"wallet-custody/internal/session"
	"wallet-custody/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSessionTimeout 单个会话一次检查 (含交易所授权调用) 的超时
const DefaultSessionTimeout = 30 * time.Second

// Scheduler 定时对所有已有钱包的存活会话执行续期检查
type Scheduler struct {
	cron       *cron.Cron
	controller *Controller
	sessions   *session.Store
	interval   time.Duration
	// sessionTimeout 每个会话单独计时，慢会话不会耗尽后面会话的时间
	sessionTimeout time.Duration
}

func NewScheduler(controller *Controller, sessions *session.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		// 上一轮未结束时跳过本轮
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		controller:     controller,
		sessions:       sessions,
		interval:       interval,
		sessionTimeout: DefaultSessionTimeout,
	}
}

// WithSessionTimeout 覆盖单个会话的检查超时
func (s *Scheduler) WithSessionTimeout(d time.Duration) *Scheduler {
	if d > 0 {
		s.sessionTimeout = d
	}
	return s
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("Renewal scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop 等待正在执行的检查结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Renewal scheduler stopped")
}

// RunOnce 检查一轮，单个会话出错只记录日志
func (s *Scheduler) RunOnce() {
	s.sessions.Each(func(sess *session.Session) {
		if sess.Closed() || !sess.HasWallet() {
			return
		}
		s.tick(sess)
	})
}

func (s *Scheduler) tick(sess *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sessionTimeout)
	defer cancel()

	if _, err := s.controller.Tick(ctx, sess); err != nil {
		logger.Warn("续期检查失败", zap.String("user_id", sess.UserID), zap.Error(err))
	}
}
