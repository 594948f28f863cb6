package solana

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math/big"

	"wallet-custody/internal/chain"
	"wallet-custody/pkg/crypto_util"
	"wallet-custody/pkg/errno"
	"wallet-custody/pkg/hdwallet"
	"wallet-custody/pkg/logger"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errInvalidSignature = errno.ErrBind.WithMessage("invalid transaction signature")

// Network Solana 主网实现，只支持原生 SOL 转账
type Network struct {
	client      Client
	commitment  rpc.CommitmentType
	explorerURL string
	info        chain.Info
}

// NewNetwork commitment 为空时使用 confirmed
func NewNetwork(client Client, commitment string, explorerURL string) *Network {
	c := rpc.CommitmentType(commitment)
	if c == "" {
		c = rpc.CommitmentConfirmed
	}
	info, _ := chain.Lookup(chain.Solana)
	return &Network{client: client, commitment: c, explorerURL: explorerURL, info: info}
}

func (n *Network) ID() chain.ID { return chain.Solana }

func (n *Network) Family() hdwallet.Family { return hdwallet.FamilySolana }

func (n *Network) ValidateAddress(addr string) error {
	if _, err := sol.PublicKeyFromBase58(addr); err != nil {
		return errno.ErrInvalidRecipientAddress
	}
	return nil
}

// buildTransfer 基于最新 blockhash 构造单指令转账交易
func (n *Network) buildTransfer(ctx context.Context, from, to sol.PublicKey, lamports uint64) (*sol.Transaction, error) {
	latest, err := n.client.GetLatestBlockhash(ctx, n.commitment)
	if err != nil {
		return nil, fmt.Errorf("获取 blockhash 失败: %w", err)
	}
	if latest == nil || latest.Value == nil {
		return nil, fmt.Errorf("节点未返回 blockhash")
	}

	return sol.NewTransaction(
		[]sol.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		latest.Value.Blockhash,
		sol.TransactionPayer(from),
	)
}

// EstimateNetworkFee 由节点对单指令转账消息报价 (按签名计费)
func (n *Network) EstimateNetworkFee(ctx context.Context, req *chain.WithdrawalRequest) (*chain.NetworkFee, error) {
	to, err := sol.PublicKeyFromBase58(req.RecipientAddress)
	if err != nil {
		return nil, errno.ErrInvalidRecipientAddress
	}
	// 未提供来源地址时用收款地址占位，费用只与签名数有关
	from := to
	if req.SourceAddress != "" {
		if from, err = sol.PublicKeyFromBase58(req.SourceAddress); err != nil {
			return nil, errno.ErrInvalidRecipientAddress.WithMessage("invalid source address")
		}
	}

	lamports := chain.ToBaseUnits(req.Amount, n.info.Decimals).Uint64()
	tx, err := n.buildTransfer(ctx, from, to, lamports)
	if err != nil {
		return nil, errno.ErrFeeEstimationFailed.WithMessage(err.Error())
	}

	out, err := n.client.GetFeeForMessage(ctx, tx.Message.ToBase64(), n.commitment)
	if err != nil {
		return nil, errno.ErrFeeEstimationFailed.WithMessage(err.Error())
	}
	if out == nil || out.Value == nil {
		return nil, errno.ErrFeeEstimationFailed.WithMessage("blockhash expired before fee quote")
	}

	return &chain.NetworkFee{
		Amount:   chain.FromBaseUnits(new(big.Int).SetUint64(*out.Value), n.info.Decimals),
		Currency: n.info.NativeSymbol,
		Units:    uint64(tx.Message.Header.NumRequiredSignatures),
	}, nil
}

// Send 获取最新 blockhash、本地签名并提交，等待节点受理后返回 pending
func (n *Network) Send(ctx context.Context, req *chain.WithdrawalRequest, signingKey []byte) (*chain.TransactionResult, error) {
	// 1. 还原私钥 (64 字节 ed25519)
	if len(signingKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("无效的签名密钥长度: %d", len(signingKey))
	}
	priv := make(sol.PrivateKey, len(signingKey))
	copy(priv, signingKey)
	defer crypto_util.Wipe(priv)

	from := priv.PublicKey()
	if req.SourceAddress != "" && req.SourceAddress != from.String() {
		return nil, fmt.Errorf("签名密钥与来源地址 %s 不匹配", req.SourceAddress)
	}
	to, err := sol.PublicKeyFromBase58(req.RecipientAddress)
	if err != nil {
		return nil, errno.ErrInvalidRecipientAddress
	}

	// 2. 构造交易
	lamports := chain.ToBaseUnits(req.Amount, n.info.Decimals).Uint64()
	tx, err := n.buildTransfer(ctx, from, to, lamports)
	if err != nil {
		return nil, err
	}

	// 3. 签名
	if _, err := tx.Sign(func(key sol.PublicKey) *sol.PrivateKey {
		if key.Equals(from) {
			return &priv
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}

	// 4. 提交，preflight 通过即视为节点已受理
	sig, err := n.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: n.commitment,
	})
	if err != nil {
		return nil, errno.ErrBroadcastRejected.WithMessage(err.Error())
	}

	hash := sig.String()
	logger.Info("Solana 交易已提交",
		zap.String("from", logger.MaskAddress(from.String())),
		zap.String("signature", hash),
		zap.Uint64("lamports", lamports))

	return &chain.TransactionResult{
		TxHash:      hash,
		ExplorerURL: n.explorerURL + hash,
		Status:      chain.TxStatusPending,
	}, nil
}

// PollStatus err → failed；confirmed / finalized → confirmed；其余 (含查无此签名) → pending
func (n *Network) PollStatus(ctx context.Context, txHash string) (*chain.TransactionResult, error) {
	sig, err := sol.SignatureFromBase58(txHash)
	if err != nil {
		return nil, errInvalidSignature
	}

	result := &chain.TransactionResult{
		TxHash:      txHash,
		ExplorerURL: n.explorerURL + txHash,
		Status:      chain.TxStatusPending,
	}

	out, err := n.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("查询签名状态失败: %w", err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return result, nil
	}

	status := out.Value[0]
	switch {
	case status.Err != nil:
		result.Status = chain.TxStatusFailed
		result.ErrorMessage = fmt.Sprint(status.Err)
	case status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
		status.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
		result.Status = chain.TxStatusConfirmed
	default:
		return result, nil
	}

	slot := status.Slot
	result.BlockNumber = &slot
	return result, nil
}

func (n *Network) Balance(ctx context.Context, addr string) (decimal.Decimal, error) {
	pub, err := sol.PublicKeyFromBase58(addr)
	if err != nil {
		return decimal.Zero, errno.ErrInvalidRecipientAddress
	}
	out, err := n.client.GetBalance(ctx, pub, n.commitment)
	if err != nil {
		return decimal.Zero, err
	}
	return chain.FromBaseUnits(new(big.Int).SetUint64(out.Value), n.info.Decimals), nil
}
