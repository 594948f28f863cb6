package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// 任务类型常量
const (
	TypeWithdrawalPoll = "withdrawal:poll"
)

// WithdrawalPollPayload 确认轮询任务参数
type WithdrawalPollPayload struct {
	UserID  string   `json:"user_id"`
	Chain   chain.ID `json:"chain"`
	TxHash  string   `json:"tx_hash"`
	Attempt int      `json:"attempt"`
}

// NewWithdrawalPollTask 创建轮询任务，delay 后执行。
// TaskID 包含轮次，同一轮次重复投递会被 asynq 去重。
func NewWithdrawalPollTask(p WithdrawalPollPayload, delay time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	id := fmt.Sprintf("poll:%s:%s:%d", p.Chain, p.TxHash, p.Attempt)
	return asynq.NewTask(TypeWithdrawalPoll, payload,
		asynq.TaskID(id),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	), nil
}

// Poller 查询提现状态，*withdraw.Service 满足该接口
type Poller interface {
	Poll(ctx context.Context, userID string, chainID chain.ID, txHash string) (*chain.TransactionResult, error)
}

// Enqueuer 投递下一轮任务
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WithdrawalPollHandler 查询一次状态；仍为 pending 时按间隔投递下一轮，直到终态或达到最大次数
type WithdrawalPollHandler struct {
	poller   Poller
	enqueuer Enqueuer
	delay    time.Duration
	maxPolls int
}

func NewWithdrawalPollHandler(poller Poller, enqueuer Enqueuer, delay time.Duration, maxPolls int) *WithdrawalPollHandler {
	if delay <= 0 {
		delay = 15 * time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 240
	}
	return &WithdrawalPollHandler{poller: poller, enqueuer: enqueuer, delay: delay, maxPolls: maxPolls}
}

// Schedule 投递指定轮次的任务，重复投递视为成功
func (h *WithdrawalPollHandler) Schedule(ctx context.Context, p WithdrawalPollPayload) error {
	task, err := NewWithdrawalPollTask(p, h.delay)
	if err != nil {
		return err
	}
	if _, err := h.enqueuer.EnqueueContext(ctx, task); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func (h *WithdrawalPollHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p WithdrawalPollPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	res, err := h.poller.Poll(ctx, p.UserID, p.Chain, p.TxHash)
	if err != nil {
		if errors.Is(err, errno.ErrUnsupportedChain) || errors.Is(err, errno.ErrWithdrawalNotFound) || errors.Is(err, errno.ErrBind) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if res.Status.Terminal() {
		logger.Info("提现确认轮询结束",
			zap.String("chain", string(p.Chain)),
			zap.String("tx_hash", p.TxHash),
			zap.String("status", string(res.Status)),
			zap.Int("attempt", p.Attempt))
		return nil
	}

	if p.Attempt+1 >= h.maxPolls {
		logger.Warn("提现长时间未确认，停止轮询",
			zap.String("chain", string(p.Chain)),
			zap.String("tx_hash", p.TxHash),
			zap.Int("attempt", p.Attempt))
		return nil
	}

	next := p
	next.Attempt++
	return h.Schedule(ctx, next)
}
