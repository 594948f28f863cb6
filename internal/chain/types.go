package chain

import (
	"context"

	"wallet-custody/pkg/hdwallet"

	"github.com/shopspring/decimal"
)

// ID 链标识
type ID string

const (
	Solana   ID = "solana"
	Ethereum ID = "ethereum"
	Arbitrum ID = "arbitrum"
	Polygon  ID = "polygon"
	BNB      ID = "bnb"
	HyperEVM ID = "hyperevm"
	// Hyperliquid 永续交易所 L1，仅用于 USDC 免 gas 提现路线
	Hyperliquid ID = "hyperliquid"
)

// TxStatus 交易状态
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// Terminal 是否为终态
func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed
}

// WithdrawalRequest 提现请求，金额以代币单位 (非最小单位) 表示
type WithdrawalRequest struct {
	Chain            ID              `json:"chain"`
	Token            string          `json:"token"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address"`
	SourceAddress    string          `json:"source_address"`
}

// NetworkFee 链上网络费报价
type NetworkFee struct {
	Amount   decimal.Decimal
	Currency string
	Gasless  bool
	// Units EVM 为 gas 数量，Solana 为签名数
	Units uint64
}

// GasEstimate 对外的费用预估，平台费与网络费分开展示，永不合并
type GasEstimate struct {
	NetworkFee             decimal.Decimal  `json:"network_fee"`
	NetworkFeeCurrency     string           `json:"network_fee_currency"`
	PlatformFee            *decimal.Decimal `json:"platform_fee,omitempty"`
	PlatformFeeCurrency    string           `json:"platform_fee_currency,omitempty"`
	PlatformFeeDescription string           `json:"platform_fee_description,omitempty"`
	IsGasless              bool             `json:"is_gasless"`
}

// TransactionResult 广播或查询结果
type TransactionResult struct {
	TxHash       string   `json:"tx_hash"`
	ExplorerURL  string   `json:"explorer_url"`
	Status       TxStatus `json:"status"`
	BlockNumber  *uint64  `json:"block_number,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// Network 单条链 (或提现路线) 的能力集合。
// Send 广播后立即返回 pending；链上失败只能通过 PollStatus 观察到。
// PollStatus 只读，不会修改任何状态。
type Network interface {
	ID() ID
	Family() hdwallet.Family
	ValidateAddress(addr string) error
	EstimateNetworkFee(ctx context.Context, req *WithdrawalRequest) (*NetworkFee, error)
	Send(ctx context.Context, req *WithdrawalRequest, signingKey []byte) (*TransactionResult, error)
	PollStatus(ctx context.Context, txHash string) (*TransactionResult, error)
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}
