package request

import (
	"wallet-custody/internal/chain"

	"github.com/shopspring/decimal"
)

// WithdrawalRequest 报价与提现共用的参数
type WithdrawalRequest struct {
	Chain            string `json:"chain" binding:"required,chain"`
	Token            string `json:"token" binding:"required,max=16"`
	Amount           string `json:"amount" binding:"required,positive_decimal"`
	RecipientAddress string `json:"recipient_address" binding:"required,max=128"`
	SourceAddress    string `json:"source_address" binding:"omitempty,max=128"`
}

// ToChain 转换为领域请求，Amount 已由 positive_decimal 校验
func (r *WithdrawalRequest) ToChain() *chain.WithdrawalRequest {
	amount, _ := decimal.NewFromString(r.Amount)
	return &chain.WithdrawalRequest{
		Chain:            chain.ID(r.Chain),
		Token:            r.Token,
		Amount:           amount,
		RecipientAddress: r.RecipientAddress,
		SourceAddress:    r.SourceAddress,
	}
}

type ListWithdrawalsQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type WithdrawalURI struct {
	Chain  string `uri:"chain" binding:"required,chain"`
	TxHash string `uri:"tx_hash" binding:"required,max=128"`
}
