package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/address"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferGas 原生币转账的标准 gas，节点无法模拟时兜底使用
const TransferGas uint64 = 21000

var errInvalidTxHash = errno.ErrBind.WithMessage("invalid transaction hash")

// Network 单条 EVM 链的实现 (Ethereum / Arbitrum / Polygon / BNB / HyperEVM)
type Network struct {
	id          chain.ID
	info        chain.Info
	client      Client
	chainID     *big.Int
	explorerURL string
	addr        *address.ETHGenerator
}

// NewNetwork chainID 为 0 时在首次使用前通过 RPC 查询
func NewNetwork(ctx context.Context, id chain.ID, client Client, chainID int64, explorerURL string) (*Network, error) {
	info, ok := chain.Lookup(id)
	if !ok || info.Family != hdwallet.FamilyEVM || info.Gasless {
		return nil, fmt.Errorf("%s 不是 EVM 链", id)
	}

	cid := big.NewInt(chainID)
	if chainID == 0 {
		remote, err := client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询 %s ChainID 失败: %w", id, err)
		}
		cid = remote
	}

	return &Network{
		id:          id,
		info:        info,
		client:      client,
		chainID:     cid,
		explorerURL: explorerURL,
		addr:        address.NewETHGenerator(),
	}, nil
}

func (n *Network) ID() chain.ID { return n.id }

func (n *Network) Family() hdwallet.Family { return hdwallet.FamilyEVM }

func (n *Network) ValidateAddress(addr string) error {
	if !n.addr.Validate(addr) {
		return errno.ErrInvalidRecipientAddress
	}
	return nil
}

// feeQuote 一次费用报价。baseFee 为 nil 表示链不支持 EIP-1559，使用 gasPrice
type feeQuote struct {
	gasLimit uint64
	baseFee  *big.Int
	tipCap   *big.Int
	gasPrice *big.Int
}

// perUnit 每单位 gas 的预估价格 (base + tip，或 legacy gasPrice)
func (q *feeQuote) perUnit() *big.Int {
	if q.baseFee == nil {
		return q.gasPrice
	}
	return new(big.Int).Add(q.baseFee, q.tipCap)
}

func (q *feeQuote) total() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(q.gasLimit), q.perUnit())
}

func (n *Network) quote(ctx context.Context, from, to common.Address, value *big.Int) (*feeQuote, error) {
	// 1. 最新区块头 (base fee)
	header, err := n.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("获取区块头失败: %w", err)
	}

	// 2. gas 数量
	gasLimit, err := n.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value})
	if err != nil {
		logger.Warn("EstimateGas 失败，使用标准转账 gas", zap.String("chain", string(n.id)), zap.Error(err))
		gasLimit = TransferGas
	}

	q := &feeQuote{gasLimit: gasLimit}

	// 3. 单价
	if header.BaseFee != nil {
		tip, err := n.client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("获取 priority fee 失败: %w", err)
		}
		q.baseFee = new(big.Int).Set(header.BaseFee)
		q.tipCap = tip
	} else {
		gasPrice, err := n.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("获取 gas price 失败: %w", err)
		}
		q.gasPrice = gasPrice
	}
	return q, nil
}

// EstimateNetworkFee 预估网络费 = gas 数量 × (base fee + priority fee)
func (n *Network) EstimateNetworkFee(ctx context.Context, req *chain.WithdrawalRequest) (*chain.NetworkFee, error) {
	to := common.HexToAddress(req.RecipientAddress)
	from := common.Address{}
	if req.SourceAddress != "" {
		from = common.HexToAddress(req.SourceAddress)
	}

	q, err := n.quote(ctx, from, to, chain.ToBaseUnits(req.Amount, n.info.Decimals))
	if err != nil {
		return nil, errno.ErrFeeEstimationFailed.WithMessage(err.Error())
	}

	return &chain.NetworkFee{
		Amount:   chain.FromBaseUnits(q.total(), n.info.Decimals),
		Currency: n.info.NativeSymbol,
		Units:    q.gasLimit,
	}, nil
}

// Send 使用发送时的最新费用报价构造交易，本地签名后广播，立即返回 pending
func (n *Network) Send(ctx context.Context, req *chain.WithdrawalRequest, signingKey []byte) (*chain.TransactionResult, error) {
	// 1. 还原私钥
	priv, err := crypto.ToECDSA(signingKey)
	if err != nil {
		return nil, fmt.Errorf("无效的签名密钥: %w", err)
	}
	defer priv.D.SetUint64(0)

	from := crypto.PubkeyToAddress(priv.PublicKey)
	if req.SourceAddress != "" && !strings.EqualFold(from.Hex(), req.SourceAddress) {
		return nil, fmt.Errorf("签名密钥与来源地址 %s 不匹配", req.SourceAddress)
	}
	to := common.HexToAddress(req.RecipientAddress)
	value := chain.ToBaseUnits(req.Amount, n.info.Decimals)

	// 2. nonce + 最新费用
	nonce, err := n.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("获取 nonce 失败: %w", err)
	}
	q, err := n.quote(ctx, from, to, value)
	if err != nil {
		return nil, errno.ErrFeeEstimationFailed.WithMessage(err.Error())
	}

	// 3. 构造交易
	var tx *types.Transaction
	if q.baseFee != nil {
		// maxFee = 2 * baseFee + tip，容忍后续几个区块的 base fee 上涨
		maxFee := new(big.Int).Add(new(big.Int).Mul(q.baseFee, big.NewInt(2)), q.tipCap)
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   n.chainID,
			Nonce:     nonce,
			GasTipCap: q.tipCap,
			GasFeeCap: maxFee,
			Gas:       q.gasLimit,
			To:        &to,
			Value:     value,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: q.gasPrice,
			Gas:      q.gasLimit,
			To:       &to,
			Value:    value,
		})
	}

	// 4. 签名 (EIP-155 / EIP-1559)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(n.chainID), priv)
	if err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}

	// 5. 广播
	if err := n.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, errno.ErrBroadcastRejected.WithMessage(err.Error())
	}

	hash := signedTx.Hash().Hex()
	logger.Info("EVM 交易已广播",
		zap.String("chain", string(n.id)),
		zap.String("from", logger.MaskAddress(from.Hex())),
		zap.String("tx_hash", hash),
		zap.Uint64("nonce", nonce))

	return &chain.TransactionResult{
		TxHash:      hash,
		ExplorerURL: n.explorerURL + hash,
		Status:      chain.TxStatusPending,
	}, nil
}

// PollStatus 查询回执：1 → confirmed，0 → failed，无回执 → pending
func (n *Network) PollStatus(ctx context.Context, txHash string) (*chain.TransactionResult, error) {
	if !isTxHash(txHash) {
		return nil, errInvalidTxHash
	}

	result := &chain.TransactionResult{
		TxHash:      txHash,
		ExplorerURL: n.explorerURL + txHash,
		Status:      chain.TxStatusPending,
	}

	receipt, err := n.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询回执失败: %w", err)
	}

	if receipt.BlockNumber != nil {
		bn := receipt.BlockNumber.Uint64()
		result.BlockNumber = &bn
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		result.Status = chain.TxStatusConfirmed
	} else {
		result.Status = chain.TxStatusFailed
		result.ErrorMessage = "execution reverted"
	}
	return result, nil
}

func (n *Network) Balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	wei, err := n.client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return decimal.Zero, err
	}
	return chain.FromBaseUnits(wei, n.info.Decimals), nil
}

func isTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
