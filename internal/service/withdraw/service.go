package withdraw

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wallet-custody/internal/chain"
	"wallet-custody/internal/model"
	"wallet-custody/internal/service/fee"
	"wallet-custody/pkg/crypto_util"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"
	"wallet-custody/pkg/monitor"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store 提现流程依赖的持久化操作，*store.Store 满足该接口
type Store interface {
	GetWallet(ctx context.Context, userID string) (*model.EmbeddedWallet, error)
	SigningKey(ctx context.Context, userID string, family hdwallet.Family) ([]byte, string, error)
	RecordWithdrawal(ctx context.Context, w *model.Withdrawal) error
	GetWithdrawal(ctx context.Context, chainID chain.ID, txHash string) (*model.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID string, limit, offset int) ([]model.Withdrawal, error)
	UpdateWithdrawalStatus(ctx context.Context, chainID chain.ID, result *chain.TransactionResult) (*model.Withdrawal, bool, error)
}

// Enqueuer 投递确认轮询任务
type Enqueuer interface {
	EnqueueConfirmation(ctx context.Context, userID string, chainID chain.ID, txHash string) error
}

// Quote 提现报价：费用、当前余额与最大可提数量
type Quote struct {
	Estimate    *chain.GasEstimate `json:"estimate"`
	Balance     decimal.Decimal    `json:"balance"`
	MaxSendable decimal.Decimal    `json:"max_sendable"`
}

type Service struct {
	store     Store
	estimator *fee.Estimator
	executor  *Executor
	registry  *chain.Registry
	enqueuer  Enqueuer

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(store Store, estimator *fee.Estimator, executor *Executor, registry *chain.Registry, enqueuer Enqueuer) *Service {
	return &Service{
		store:     store,
		estimator: estimator,
		executor:  executor,
		registry:  registry,
		enqueuer:  enqueuer,
		inFlight:  make(map[string]struct{}),
	}
}

// prepare 校验请求并补全来源地址
func (s *Service) prepare(ctx context.Context, userID string, req *chain.WithdrawalRequest) (chain.Network, error) {
	network, _, err := s.estimator.Validate(req)
	if err != nil {
		return nil, err
	}
	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	source := wallet.AddressFor(network.Family())
	if req.SourceAddress != "" && req.SourceAddress != source {
		return nil, errno.ErrBind.WithMessage("source address does not belong to this wallet")
	}
	req.SourceAddress = source
	return network, nil
}

// Quote 报价并给出最大可提数量
func (s *Service) Quote(ctx context.Context, userID string, req *chain.WithdrawalRequest) (*Quote, error) {
	network, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	est, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		return nil, err
	}
	balance, err := network.Balance(ctx, req.SourceAddress)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return &Quote{
		Estimate:    est,
		Balance:     balance,
		MaxSendable: fee.MaxSendable(balance, req.Token, est),
	}, nil
}

func (s *Service) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *Service) release(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// Submit 校验、报价、余额检查后签名广播，并记录历史、投递确认任务。
// 同一用户同一时间只允许一笔提交。
func (s *Service) Submit(ctx context.Context, userID string, req *chain.WithdrawalRequest) (*chain.TransactionResult, error) {
	network, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	est, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		return nil, err
	}
	balance, err := network.Balance(ctx, req.SourceAddress)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	if req.Amount.Add(fee.SameTokenFees(req.Token, est)).GreaterThan(balance) {
		return nil, errno.ErrInsufficientBalance
	}

	if !s.acquire(userID) {
		return nil, errno.ErrWithdrawalInFlight
	}
	defer s.release(userID)

	key, _, err := s.store.SigningKey(ctx, userID, network.Family())
	if err != nil {
		return nil, err
	}
	res, err := s.executor.Send(ctx, req, key)
	crypto_util.Wipe(key)
	if err != nil {
		logger.Warn("提现广播失败",
			zap.String("user_id", userID),
			zap.String("chain", string(req.Chain)),
			zap.Error(err))
		return nil, err
	}

	// 交易已广播，后续写库或投递失败只记录日志，不影响返回
	w := &model.Withdrawal{
		UserID:      userID,
		Chain:       string(req.Chain),
		Token:       req.Token,
		Amount:      req.Amount,
		FromAddress: req.SourceAddress,
		ToAddress:   req.RecipientAddress,
		TxHash:      res.TxHash,
		ExplorerURL: res.ExplorerURL,
		NetworkFee:  est.NetworkFee,
		Status:      string(res.Status),
	}
	if est.PlatformFee != nil {
		w.PlatformFee = *est.PlatformFee
	}
	if err := s.store.RecordWithdrawal(ctx, w); err != nil {
		logger.Error("提现记录写入失败",
			zap.String("user_id", userID),
			zap.String("tx_hash", res.TxHash),
			zap.Error(err))
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueConfirmation(ctx, userID, req.Chain, res.TxHash); err != nil {
			logger.Warn("确认任务投递失败", zap.String("tx_hash", res.TxHash), zap.Error(err))
		}
	}

	logger.Info("提现已广播",
		zap.String("user_id", userID),
		zap.String("chain", string(req.Chain)),
		zap.String("to", logger.MaskAddress(req.RecipientAddress)),
		zap.String("amount", req.Amount.String()),
		zap.String("tx_hash", res.TxHash))
	return res, nil
}

func resultOf(w *model.Withdrawal) *chain.TransactionResult {
	return &chain.TransactionResult{
		TxHash:       w.TxHash,
		ExplorerURL:  w.ExplorerURL,
		Status:       chain.TxStatus(w.Status),
		BlockNumber:  w.BlockNumber,
		ErrorMessage: w.ErrorMessage,
	}
}

// Poll 查询提现状态。已进入终态的记录直接返回；首次观察到终态时写回并发出 settled 事件。
// 没有记录的哈希只做只读查询。
func (s *Service) Poll(ctx context.Context, userID string, chainID chain.ID, txHash string) (*chain.TransactionResult, error) {
	w, err := s.store.GetWithdrawal(ctx, chainID, txHash)
	switch {
	case errors.Is(err, errno.ErrWithdrawalNotFound):
		return s.executor.PollStatus(ctx, chainID, txHash)
	case err != nil:
		return nil, err
	case w.UserID != userID:
		return nil, errno.ErrWithdrawalNotFound
	case chain.TxStatus(w.Status).Terminal():
		return resultOf(w), nil
	}

	res, err := s.executor.PollStatus(ctx, chainID, txHash)
	if err != nil {
		return nil, err
	}
	if res.ExplorerURL == "" {
		res.ExplorerURL = w.ExplorerURL
	}
	if !res.Status.Terminal() {
		return res, nil
	}
	// 链上失败是状态而不是错误，节点未给出原因时补默认说明
	if res.Status == chain.TxStatusFailed && res.ErrorMessage == "" {
		res.ErrorMessage = errno.ErrConfirmationFailed.Message
	}

	_, settled, err := s.store.UpdateWithdrawalStatus(ctx, chainID, res)
	if err != nil {
		return nil, err
	}
	if settled {
		monitor.Business.WithdrawSettledTotal.WithLabelValues(string(chainID), string(res.Status)).Inc()
		logger.Info("提现已结算",
			zap.String("chain", string(chainID)),
			zap.String("tx_hash", txHash),
			zap.String("status", string(res.Status)))
	}
	return res, nil
}

// List 用户提现历史
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]model.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, userID, limit, offset)
}
