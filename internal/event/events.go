package event

// WalletProvisionedEvent 钱包创建事件
// Topic: wallet_events_provisioned
type WalletProvisionedEvent struct {
	UserID        string `json:"user_id"`
	SolanaAddress string `json:"solana_address"`
	EVMAddress    string `json:"evm_address"`
}

// WithdrawalSubmittedEvent 提现已广播事件
// Topic: wallet_events_withdrawal_submitted
type WithdrawalSubmittedEvent struct {
	WithdrawalID uint64 `json:"withdrawal_id"`
	UserID       string `json:"user_id"`
	Chain        string `json:"chain"`
	Token        string `json:"token"`
	Amount       string `json:"amount"` // Decimal string
	ToAddress    string `json:"to_address"`
	TxHash       string `json:"tx_hash"`
}

// WithdrawalSettledEvent 提现终态事件 (confirmed / failed)
// Topic: wallet_events_withdrawal_settled
type WithdrawalSettledEvent struct {
	WithdrawalID uint64  `json:"withdrawal_id"`
	UserID       string  `json:"user_id"`
	Chain        string  `json:"chain"`
	TxHash       string  `json:"tx_hash"`
	Status       string  `json:"status"`
	BlockNumber  *uint64 `json:"block_number,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// CredentialRenewedEvent API 钱包续期事件
// Topic: wallet_events_credential_renewed
type CredentialRenewedEvent struct {
	UserID       string `json:"user_id"`
	AgentAddress string `json:"agent_address"`
	ExpiresAt    int64  `json:"expires_at"` // Unix 秒
}
