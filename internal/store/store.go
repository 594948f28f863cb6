package store

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/kms"
	"wallet-custody/pkg/utils/lock"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AgentApprover 交易所 API 钱包授权，*hyperliquid.Client 满足该接口
type AgentApprover interface {
	ApproveAgent(ctx context.Context, userKey *ecdsa.PrivateKey, agentAddress common.Address, agentName string, validUntil time.Time) error
}

type Options struct {
	AgentName     string
	AgentValidity time.Duration
	// RenewWithin 剩余有效期大于该值时视为健康，续期请求直接返回现有凭证
	RenewWithin time.Duration
}

// Store 服务端状态的唯一持有者：钱包、加密密钥、API 凭证、提现记录与 Outbox
type Store struct {
	db       *gorm.DB
	keys     kms.KeyManager
	locker   lock.DistributedLock
	registry *chain.Registry
	approver AgentApprover
	opts     Options
	now      func() time.Time
}

func New(db *gorm.DB, keys kms.KeyManager, locker lock.DistributedLock, registry *chain.Registry, approver AgentApprover, opts Options) *Store {
	if opts.AgentValidity <= 0 {
		opts.AgentValidity = 7 * 24 * time.Hour
	}
	if opts.AgentName == "" {
		opts.AgentName = "wallet-custody"
	}
	return &Store{
		db:       db,
		keys:     keys,
		locker:   locker,
		registry: registry,
		approver: approver,
		opts:     opts,
		now:      time.Now,
	}
}

// DB 暴露给 Outbox 中继等需要直接访问表的组件
func (s *Store) DB() *gorm.DB {
	return s.db
}

// isUniqueViolation 兼容 TranslateError 开启与否两种情况
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
