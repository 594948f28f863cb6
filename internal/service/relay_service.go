package service

import (
	"context"
	"time"

	"wallet-custody/internal/model"
	"wallet-custody/internal/service/mq"
	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/monitor"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const relayBatchSize = 50

// RelayService 负责将本地消息表的消息搬运到 MQ
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("Outbox relay started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

// ProcessPending 投递一批 PENDING 消息，返回成功条数。
// 发送成功后才标记 SENT (至少一次投递)，消费方需幂等。
func (s *RelayService) ProcessPending(ctx context.Context) int {
	var messages []model.OutboxMessage
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("id").
		Limit(relayBatchSize).
		Find(&messages).Error; err != nil {
		logger.Error("查询 Outbox 消息失败", zap.Error(err))
		return 0
	}

	sent := 0
	for i := range messages {
		msg := &messages[i]
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			monitor.Business.OutboxRelayedTotal.WithLabelValues("failed").Inc()
			logger.Warn("Outbox 消息投递失败", zap.Uint64("id", msg.ID), zap.String("topic", msg.Topic), zap.Error(err))
			continue
		}

		if err := s.db.WithContext(ctx).Model(msg).Update("status", model.OutboxStatusSent).Error; err != nil {
			logger.Error("更新 Outbox 状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		monitor.Business.OutboxRelayedTotal.WithLabelValues("sent").Inc()
		sent++
	}
	return sent
}
