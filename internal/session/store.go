package session

import (
	"errors"
	"time"

	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/monitor"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ErrUserMismatch 会话 ID 已属于其他用户
var ErrUserMismatch = errors.New("session belongs to another user")

// Store 进程内会话存储，空闲超时即视为放弃，淘汰时销毁会话内的秘密
type Store struct {
	c    *cache.Cache
	idle time.Duration
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	cleanup := idle / 2
	if cleanup > time.Minute {
		cleanup = time.Minute
	}
	c := cache.New(idle, cleanup)
	c.OnEvicted(func(id string, v interface{}) {
		if sess, ok := v.(*Session); ok {
			sess.Close()
			monitor.Business.ActiveSessions.Dec()
			logger.Debug("会话已结束", zap.String("session_id", id), zap.String("user_id", sess.UserID))
		}
	})
	return &Store{c: c, idle: idle}
}

// Get 查询会话并刷新空闲计时。已结束的会话视为不存在。
// 刷新用 Replace：条目若已被清理协程淘汰则失败，不会把已关闭的会话写回去。
func (s *Store) Get(id string) (*Session, bool) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	if sess.Closed() {
		return nil, false
	}
	if err := s.c.Replace(id, sess, s.idle); err != nil {
		return nil, false
	}
	return sess, true
}

// GetOrCreate 获取会话，不存在时为该用户创建
func (s *Store) GetOrCreate(id, userID string) (*Session, error) {
	if sess, ok := s.Get(id); ok {
		if sess.UserID != userID {
			return nil, ErrUserMismatch
		}
		return sess, nil
	}

	sess := New(id, userID)
	if err := s.c.Add(id, sess, s.idle); err != nil {
		if v, found := s.c.Get(id); found && v.(*Session).Closed() {
			// 残留的已关闭会话 (淘汰回调已执行)，直接覆盖
			s.c.Set(id, sess, s.idle)
			monitor.Business.ActiveSessions.Inc()
			return sess, nil
		}
		// 并发创建，使用先写入的那个
		return s.GetOrCreate(id, userID)
	}
	monitor.Business.ActiveSessions.Inc()
	return sess, nil
}

// Logout 结束会话，触发淘汰回调销毁秘密
func (s *Store) Logout(id string) {
	s.c.Delete(id)
}

// Each 遍历所有存活会话
func (s *Store) Each(fn func(*Session)) {
	for _, item := range s.c.Items() {
		if sess, ok := item.Object.(*Session); ok {
			fn(sess)
		}
	}
}

// Count 存活会话数
func (s *Store) Count() int {
	return s.c.ItemCount()
}
