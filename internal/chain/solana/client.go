package solana

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client 本包用到的 Solana JSON-RPC 子集，*rpc.Client 直接满足
type Client interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetFeeForMessage(ctx context.Context, message string, commitment rpc.CommitmentType) (*rpc.GetFeeForMessageResult, error)
	GetBalance(ctx context.Context, publicKey sol.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *sol.Transaction, opts rpc.TransactionOpts) (sol.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...sol.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ Client = (*rpc.Client)(nil)

// Dial 创建 RPC 客户端 (HTTP，无需预先建连)
func Dial(rpcURL string) *rpc.Client {
	return rpc.New(rpcURL)
}
