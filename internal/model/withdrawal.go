package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal 提现记录表
type Withdrawal struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string          `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Chain        string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_chain_tx" json:"chain"`
	Token        string          `gorm:"type:varchar(16);not null" json:"token"`
	Amount       decimal.Decimal `gorm:"type:decimal(38,18);not null" json:"amount"`
	FromAddress  string          `gorm:"type:varchar(64);not null" json:"from_address"`
	ToAddress    string          `gorm:"type:varchar(64);not null" json:"to_address"`
	TxHash       string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_chain_tx" json:"tx_hash"`
	ExplorerURL  string          `gorm:"type:varchar(255)" json:"explorer_url"`
	NetworkFee   decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0" json:"network_fee"`
	PlatformFee  decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0" json:"platform_fee"`
	Status       string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"` // pending, confirmed, failed
	BlockNumber  *uint64         `json:"block_number,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
