package session

import (
	"sync"
	"time"
)

// Secret 会话持有的一次性敏感数据 (待展示的助记词)
type Secret interface {
	Destroy()
}

// ProvisionState 钱包开通状态
type ProvisionState string

const (
	StateNoWallet             ProvisionState = "no_wallet"
	StateDeriving             ProvisionState = "deriving"
	StatePersistingAddresses  ProvisionState = "persisting_addresses"
	StateAwaitingConfirmation ProvisionState = "awaiting_confirmation"
	StateConfirmed            ProvisionState = "confirmed"
	StateFailed               ProvisionState = "failed"
)

// RenewalState API 钱包续期的会话级簿记
type RenewalState struct {
	InFlight    bool
	Attempted   bool
	LastAttempt time.Time
	FailedAt    time.Time
}

// Session 单个用户会话的可变状态。所有标志只存在于会话对象上，不同会话互不影响。
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu           sync.Mutex
	closed       bool
	provisioning bool
	hasWallet    bool
	state        ProvisionState
	lastErr      string
	pending      Secret
	renewal      RenewalState
}

func New(id, userID string) *Session {
	return &Session{ID: id, UserID: userID, CreatedAt: time.Now(), state: StateNoWallet}
}

// BeginProvisioning 进入开通流程。已在进行、已失败待重置或已有钱包时返回 false。
// 标志只在成功或登出后复位。
func (s *Session) BeginProvisioning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.provisioning || s.hasWallet {
		return false
	}
	s.provisioning = true
	s.lastErr = ""
	s.state = StateDeriving
	return true
}

// SetState 记录开通流程的当前阶段
func (s *Session) SetState(state ProvisionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// FailProvisioning 开通失败，guard 保持占用直到登出
func (s *Session) FailProvisioning(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	if err != nil {
		s.lastErr = err.Error()
	}
}

// CompleteProvisioning 钱包已存在 (新建或复用)，复位 guard
func (s *Session) CompleteProvisioning(state ProvisionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provisioning = false
	s.hasWallet = true
	s.state = state
}

// HasWallet 本会话是否已确认用户钱包存在
func (s *Session) HasWallet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasWallet
}

// State 返回开通状态与最近一次错误
func (s *Session) State() (ProvisionState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

// SetPending 挂上待展示的秘密；会话已关闭时立即销毁。返回是否挂载成功。
func (s *Session) SetPending(secret Secret) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		secret.Destroy()
		return false
	}
	if s.pending != nil {
		s.pending.Destroy()
	}
	s.pending = secret
	return true
}

// Pending 返回待展示的秘密，没有时为 nil
func (s *Session) Pending() Secret {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// ClearPending 销毁并移除待展示的秘密
func (s *Session) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Destroy()
		s.pending = nil
	}
}

// Renewal 在会话锁内读写续期簿记
func (s *Session) Renewal(fn func(r *RenewalState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.renewal)
}

// Close 会话结束 (登出或超时)：销毁秘密并复位所有标志
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Destroy()
		s.pending = nil
	}
	s.closed = true
	s.provisioning = false
	s.renewal = RenewalState{}
}

// Closed 会话是否已结束
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
