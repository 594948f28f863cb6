package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-custody/internal/event"
	"wallet-custody/internal/model"
	"wallet-custody/pkg/crypto_util"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const renewLockTTL = 30 * time.Second

// CredentialStatus API 钱包状态
type CredentialStatus struct {
	HasCredential bool       `json:"has_credential"`
	AgentAddress  string     `json:"agent_address,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// Remaining 距离过期的时间，没有凭证时返回 0
func (c *CredentialStatus) Remaining(now time.Time) time.Duration {
	if c == nil || !c.HasCredential || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

func renewLockKey(userID string) string {
	return "credential:renew:" + userID
}

// CredentialStatus 查询 API 钱包状态，没有凭证不是错误
func (s *Store) CredentialStatus(ctx context.Context, userID string) (*CredentialStatus, error) {
	var cred model.APICredential
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CredentialStatus{}, nil
	}
	if err != nil {
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}
	return &CredentialStatus{
		HasCredential: true,
		AgentAddress:  cred.AgentAddress,
		ExpiresAt:     &cred.ExpiresAt,
		ApprovedAt:    &cred.ApprovedAt,
	}, nil
}

// RenewCredential 生成新的 API 钱包并在交易所授权。
// 同一用户的续期通过 Redis 锁互斥；拿到锁后若凭证已被其它实例续期则直接返回。
func (s *Store) RenewCredential(ctx context.Context, userID string) (*CredentialStatus, error) {
	ok, err := s.locker.Acquire(ctx, renewLockKey(userID), renewLockTTL)
	if err != nil {
		return nil, errno.ErrCredentialRenewalFailed.WithMessage(err.Error())
	}
	if !ok {
		return nil, errno.ErrCredentialRenewalFailed.WithMessage("renewal already in progress")
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), renewLockKey(userID)); err != nil {
			logger.Warn("释放续期锁失败", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	now := s.now()
	current, err := s.CredentialStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.Remaining(now) > s.opts.RenewWithin {
		return current, nil
	}

	// 1. 解密用户 EVM 主密钥
	raw, userAddr, err := s.SigningKey(ctx, userID, hdwallet.FamilyEVM)
	if err != nil {
		return nil, err
	}
	userKey, err := crypto.ToECDSA(raw)
	crypto_util.Wipe(raw)
	if err != nil {
		return nil, fmt.Errorf("无效的 EVM 密钥: %w", err)
	}
	defer userKey.D.SetUint64(0)

	// 2. 生成新的 agent 密钥并授权
	agentKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer agentKey.D.SetUint64(0)
	agentAddr := crypto.PubkeyToAddress(agentKey.PublicKey)
	expiresAt := now.Add(s.opts.AgentValidity)

	if err := s.approver.ApproveAgent(ctx, userKey, agentAddr, s.opts.AgentName, expiresAt); err != nil {
		return nil, errno.ErrCredentialRenewalFailed.WithMessage(err.Error())
	}

	// 3. 加密保存 agent 私钥
	agentRaw := crypto.FromECDSA(agentKey)
	keyID := s.keys.DefaultKeyID()
	ct, err := s.keys.Encrypt(keyID, agentRaw, []byte(userID))
	crypto_util.Wipe(agentRaw)
	if err != nil {
		return nil, fmt.Errorf("加密 agent 密钥失败: %w", err)
	}

	cred := model.APICredential{
		UserID:       userID,
		AgentAddress: agentAddr.Hex(),
		AgentName:    s.opts.AgentName,
		KeyID:        keyID,
		Ciphertext:   ct,
		ApprovedAt:   now,
		ExpiresAt:    expiresAt,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"agent_address", "agent_name", "key_id", "ciphertext", "approved_at", "expires_at", "updated_at"}),
		}).Create(&cred).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(tx, model.TopicCredentialRenewed, userID, event.CredentialRenewedEvent{
			UserID:       userID,
			AgentAddress: cred.AgentAddress,
			ExpiresAt:    expiresAt.Unix(),
		})
	})
	if err != nil {
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}

	logger.Info("API 钱包已续期",
		zap.String("user_id", userID),
		zap.String("user", logger.MaskAddress(userAddr)),
		zap.String("agent", logger.MaskAddress(cred.AgentAddress)),
		zap.Time("expires_at", expiresAt))

	return &CredentialStatus{
		HasCredential: true,
		AgentAddress:  cred.AgentAddress,
		ExpiresAt:     &expiresAt,
		ApprovedAt:    &now,
	}, nil
}
