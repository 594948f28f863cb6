package store

import (
	"context"
	"errors"
	"fmt"

	"wallet-custody/internal/event"
	"wallet-custody/internal/model"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateWallet 在一个事务内写入钱包、加密后的签名密钥和 Outbox 事件。
// 用户已有钱包 (先查到或唯一约束冲突) 时返回 ErrWalletAlreadyExists，不做任何写入。
func (s *Store) CreateWallet(ctx context.Context, userID string, pairs []*hdwallet.ChainKeyPair) (*model.EmbeddedWallet, error) {
	wallet, err := model.NewEmbeddedWallet(userID, pairs)
	if err != nil {
		return nil, err
	}
	sol := hdwallet.Find(pairs, hdwallet.FamilySolana)
	evm := hdwallet.Find(pairs, hdwallet.FamilyEVM)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.EmbeddedWallet
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			return errno.ErrWalletAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(wallet).Error; err != nil {
			return err
		}

		keyID := s.keys.DefaultKeyID()
		for _, p := range []*hdwallet.ChainKeyPair{sol, evm} {
			ct, err := s.keys.Encrypt(keyID, p.SigningKey, []byte(userID))
			if err != nil {
				return fmt.Errorf("加密签名密钥失败: %w", err)
			}
			if err := tx.Create(&model.WalletKey{
				WalletID:   wallet.ID,
				UserID:     userID,
				Family:     string(p.Family),
				Address:    p.Address,
				KeyID:      keyID,
				Ciphertext: ct,
			}).Error; err != nil {
				return err
			}
		}

		return model.CreateOutboxMessage(tx, model.TopicWalletProvisioned, userID, event.WalletProvisionedEvent{
			UserID:        userID,
			SolanaAddress: wallet.SolanaAddress,
			EVMAddress:    wallet.EVMAddress,
		})
	})
	if err != nil {
		if errors.Is(err, errno.ErrWalletAlreadyExists) || isUniqueViolation(err) {
			return nil, errno.ErrWalletAlreadyExists
		}
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}

	logger.Info("钱包已创建",
		zap.String("user_id", userID),
		zap.String("solana", logger.MaskAddress(wallet.SolanaAddress)),
		zap.String("evm", logger.MaskAddress(wallet.EVMAddress)))
	return wallet, nil
}

// GetWallet 查询用户钱包
func (s *Store) GetWallet(ctx context.Context, userID string) (*model.EmbeddedWallet, error) {
	var w model.EmbeddedWallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrWalletNotFound
	}
	if err != nil {
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}
	return &w, nil
}

// ConfirmSeedShown 标记助记词已展示，重复调用无副作用
func (s *Store) ConfirmSeedShown(ctx context.Context, userID string) error {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&model.EmbeddedWallet{}).
		Where("user_id = ? AND seed_confirmed = ?", userID, false).
		Updates(map[string]interface{}{"seed_confirmed": true, "seed_confirmed_at": now})
	if res.Error != nil {
		return errno.ErrDatabase.WithMessage(res.Error.Error())
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 没有更新任何行：已确认过，或钱包不存在
	_, err := s.GetWallet(ctx, userID)
	return err
}

// SigningKey 解密指定链族的签名密钥，调用方负责清零返回值
func (s *Store) SigningKey(ctx context.Context, userID string, family hdwallet.Family) ([]byte, string, error) {
	var k model.WalletKey
	err := s.db.WithContext(ctx).Where("user_id = ? AND family = ?", userID, string(family)).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", errno.ErrWalletNotFound
	}
	if err != nil {
		return nil, "", errno.ErrDatabase.WithMessage(err.Error())
	}

	plain, err := s.keys.Decrypt(k.KeyID, k.Ciphertext, []byte(userID))
	if err != nil {
		return nil, "", fmt.Errorf("解密签名密钥失败: %w", err)
	}
	return plain, k.Address, nil
}
