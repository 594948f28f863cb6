package hyperliquid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/address"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 账本查询向前多取的时间，吸收客户端与交易所的时钟偏差
const ledgerLookback = time.Minute

// Route 交易所 USDC 免 gas 提现路线。
// 交易所不返回链上哈希，TxHash 使用 "<用户地址>:<nonce>" 作为引用，
// 在账本中出现同 nonce 的 withdraw 记录即视为已确认。
type Route struct {
	client      *Client
	explorerURL string
	info        chain.Info
	addr        *address.ETHGenerator
}

func NewRoute(client *Client, explorerURL string) *Route {
	info, _ := chain.Lookup(chain.Hyperliquid)
	return &Route{client: client, explorerURL: explorerURL, info: info, addr: address.NewETHGenerator()}
}

func (r *Route) ID() chain.ID { return chain.Hyperliquid }

func (r *Route) Family() hdwallet.Family { return hdwallet.FamilyEVM }

func (r *Route) ValidateAddress(addr string) error {
	if !r.addr.Validate(addr) {
		return errno.ErrInvalidRecipientAddress
	}
	return nil
}

// EstimateNetworkFee 交易所代付，网络费恒为 0，不做任何模拟
func (r *Route) EstimateNetworkFee(_ context.Context, _ *chain.WithdrawalRequest) (*chain.NetworkFee, error) {
	return &chain.NetworkFee{Amount: decimal.Zero, Currency: r.info.NativeSymbol, Gasless: true}, nil
}

func (r *Route) Send(ctx context.Context, req *chain.WithdrawalRequest, signingKey []byte) (*chain.TransactionResult, error) {
	key, err := crypto.ToECDSA(signingKey)
	if err != nil {
		return nil, fmt.Errorf("无效的签名密钥: %w", err)
	}
	defer key.D.SetUint64(0)

	user := crypto.PubkeyToAddress(key.PublicKey)
	if req.SourceAddress != "" && !strings.EqualFold(req.SourceAddress, user.Hex()) {
		return nil, fmt.Errorf("签名密钥与来源地址 %s 不匹配", req.SourceAddress)
	}

	nonce, err := r.client.Withdraw(ctx, key, common.HexToAddress(req.RecipientAddress), req.Amount)
	if err != nil {
		return nil, errno.ErrBroadcastRejected.WithMessage(err.Error())
	}

	ref := fmt.Sprintf("%s:%d", strings.ToLower(user.Hex()), nonce)
	logger.Info("交易所提现已提交",
		zap.String("user", logger.MaskAddress(user.Hex())),
		zap.Int64("nonce", nonce),
		zap.String("amount", req.Amount.String()))

	return &chain.TransactionResult{TxHash: ref, Status: chain.TxStatusPending}, nil
}

func parseRef(ref string) (common.Address, int64, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 || !common.IsHexAddress(parts[0]) {
		return common.Address{}, 0, errno.ErrBind.WithMessage("invalid withdrawal reference")
	}
	nonce, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || nonce <= 0 {
		return common.Address{}, 0, errno.ErrBind.WithMessage("invalid withdrawal reference")
	}
	return common.HexToAddress(parts[0]), nonce, nil
}

// PollStatus 在账本中查找同 nonce 的提现；找不到保持 pending
func (r *Route) PollStatus(ctx context.Context, ref string) (*chain.TransactionResult, error) {
	user, nonce, err := parseRef(ref)
	if err != nil {
		return nil, err
	}

	result := &chain.TransactionResult{TxHash: ref, Status: chain.TxStatusPending}

	since := time.UnixMilli(nonce).Add(-ledgerLookback)
	updates, err := r.client.LedgerUpdates(ctx, user, since)
	if err != nil {
		return nil, fmt.Errorf("查询账本失败: %w", err)
	}

	for _, u := range updates {
		if u.Delta.Type != "withdraw" || u.Delta.Nonce != nonce {
			continue
		}
		result.Status = chain.TxStatusConfirmed
		if u.Hash != "" {
			result.ExplorerURL = r.explorerURL + u.Hash
		}
		break
	}
	return result, nil
}

// Balance 可提现 USDC
func (r *Route) Balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	if !common.IsHexAddress(addr) {
		return decimal.Zero, errno.ErrInvalidRecipientAddress
	}
	return r.client.Withdrawable(ctx, common.HexToAddress(addr))
}
