package store

import (
	"context"
	"errors"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/event"
	"wallet-custody/internal/model"
	"wallet-custody/pkg/errno"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordWithdrawal 保存已广播的提现并写入 Outbox
func (s *Store) RecordWithdrawal(ctx context.Context, w *model.Withdrawal) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(tx, model.TopicWithdrawalSubmitted, w.UserID, event.WithdrawalSubmittedEvent{
			WithdrawalID: w.ID,
			UserID:       w.UserID,
			Chain:        w.Chain,
			Token:        w.Token,
			Amount:       w.Amount.String(),
			ToAddress:    w.ToAddress,
			TxHash:       w.TxHash,
		})
	})
	if err != nil {
		return errno.ErrDatabase.WithMessage(err.Error())
	}
	return nil
}

// GetWithdrawal 按链与哈希查询
func (s *Store) GetWithdrawal(ctx context.Context, chainID chain.ID, txHash string) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := s.db.WithContext(ctx).Where("chain = ? AND tx_hash = ?", string(chainID), txHash).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}
	return &w, nil
}

// ListWithdrawals 用户提现历史，按时间倒序
func (s *Store) ListWithdrawals(ctx context.Context, userID string, limit, offset int) ([]model.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []model.Withdrawal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, errno.ErrDatabase.WithMessage(err.Error())
	}
	return list, nil
}

// UpdateWithdrawalStatus 将轮询结果写回记录。
// 只在首次进入终态时更新并发出 settled 事件，返回值 settled 表示本次是否发生了状态迁移。
func (s *Store) UpdateWithdrawalStatus(ctx context.Context, chainID chain.ID, result *chain.TransactionResult) (w *model.Withdrawal, settled bool, err error) {
	if !result.Status.Terminal() {
		return nil, false, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Withdrawal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("chain = ? AND tx_hash = ?", string(chainID), result.TxHash).
			First(&row).Error; err != nil {
			return err
		}
		w = &row
		if chain.TxStatus(row.Status).Terminal() {
			return nil
		}

		now := s.now()
		updates := map[string]interface{}{
			"status":        string(result.Status),
			"block_number":  result.BlockNumber,
			"error_message": result.ErrorMessage,
			"settled_at":    now,
		}
		if result.ExplorerURL != "" {
			updates["explorer_url"] = result.ExplorerURL
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		row.Status = string(result.Status)
		row.BlockNumber = result.BlockNumber
		row.ErrorMessage = result.ErrorMessage
		row.SettledAt = &now
		settled = true

		return model.CreateOutboxMessage(tx, model.TopicWithdrawalSettled, row.UserID, event.WithdrawalSettledEvent{
			WithdrawalID: row.ID,
			UserID:       row.UserID,
			Chain:        row.Chain,
			TxHash:       row.TxHash,
			Status:       row.Status,
			BlockNumber:  row.BlockNumber,
			ErrorMessage: row.ErrorMessage,
		})
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, errno.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, false, errno.ErrDatabase.WithMessage(err.Error())
	}
	return w, settled, nil
}
