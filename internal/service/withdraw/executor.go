package withdraw

import (
	"context"
	"errors"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/monitor"
)

// Executor 按链分发签名广播与状态查询
type Executor struct {
	registry *chain.Registry
}

func NewExecutor(registry *chain.Registry) *Executor {
	return &Executor{registry: registry}
}

// Send 签名并广播，成功时立即返回 pending。
// 广播阶段的失败同步返回 ErrBroadcastRejected 并保留节点原始信息。
func (e *Executor) Send(ctx context.Context, req *chain.WithdrawalRequest, signingKey []byte) (*chain.TransactionResult, error) {
	network, err := e.registry.Get(req.Chain)
	if err != nil {
		return nil, err
	}

	res, err := network.Send(ctx, req, signingKey)
	if err != nil {
		monitor.Business.WithdrawRejectedTotal.WithLabelValues(string(req.Chain)).Inc()
		var typed errno.Errno
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, errno.ErrBroadcastRejected.WithMessage(err.Error())
	}

	monitor.Business.WithdrawSubmittedTotal.WithLabelValues(string(req.Chain)).Inc()
	monitor.Business.WithdrawAmountTotal.WithLabelValues(req.Token).Add(req.Amount.InexactFloat64())
	return res, nil
}

// PollStatus 只读查询，未知哈希返回 pending
func (e *Executor) PollStatus(ctx context.Context, chainID chain.ID, txHash string) (*chain.TransactionResult, error) {
	network, err := e.registry.Get(chainID)
	if err != nil {
		return nil, err
	}
	res, err := network.PollStatus(ctx, txHash)
	if err != nil {
		return nil, err
	}
	monitor.Business.ConfirmationPollsTotal.WithLabelValues(string(chainID), string(res.Status)).Inc()
	return res, nil
}
