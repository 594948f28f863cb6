package model

import (
	"errors"
	"time"

	"wallet-custody/pkg/hdwallet"
)

// EmbeddedWallet 用户嵌入式钱包，每个用户一行。
// 所有 EVM 链共用同一个密钥，Polygon / Hyperliquid / BNB 地址与 EVMAddress 相同，单独落列供前端按链读取。
type EmbeddedWallet struct {
	ID                 uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	SolanaAddress      string     `gorm:"type:varchar(64);not null" json:"solana_address"`
	EVMAddress         string     `gorm:"column:evm_address;type:varchar(42);not null" json:"evm_address"`
	PolygonAddress     string     `gorm:"type:varchar(42);not null" json:"polygon_address"`
	HyperliquidAddress string     `gorm:"type:varchar(42);not null" json:"hyperliquid_address"`
	BNBAddress         string     `gorm:"column:bnb_address;type:varchar(42);not null" json:"bnb_address"`
	SeedConfirmed      bool       `gorm:"not null;default:false" json:"seed_confirmed"`
	SeedConfirmedAt    *time.Time `json:"seed_confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewEmbeddedWallet 由派生出的密钥对填充各链地址
func NewEmbeddedWallet(userID string, pairs []*hdwallet.ChainKeyPair) (*EmbeddedWallet, error) {
	sol := hdwallet.Find(pairs, hdwallet.FamilySolana)
	evm := hdwallet.Find(pairs, hdwallet.FamilyEVM)
	if sol == nil || evm == nil {
		return nil, errors.New("缺少 solana 或 evm 密钥对")
	}
	return &EmbeddedWallet{
		UserID:             userID,
		SolanaAddress:      sol.Address,
		EVMAddress:         evm.Address,
		PolygonAddress:     evm.Address,
		HyperliquidAddress: evm.Address,
		BNBAddress:         evm.Address,
	}, nil
}

func (EmbeddedWallet) TableName() string {
	return "embedded_wallets"
}

// AddressFor 按密钥族返回地址
func (w *EmbeddedWallet) AddressFor(family hdwallet.Family) string {
	if family == hdwallet.FamilySolana {
		return w.SolanaAddress
	}
	return w.EVMAddress
}

// WalletKey 加密保存的签名密钥，AAD 为 user_id
type WalletKey struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletID   uint64    `gorm:"not null;index" json:"wallet_id"`
	UserID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_family" json:"user_id"`
	Family     string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_user_family" json:"family"` // solana, evm
	Address    string    `gorm:"type:varchar(64);not null" json:"address"`
	KeyID      string    `gorm:"type:varchar(64);not null" json:"-"` // KMS 密钥 ID
	Ciphertext []byte    `gorm:"type:bytea;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (WalletKey) TableName() string {
	return "wallet_keys"
}

// APICredential 交易所 API 钱包 (agent)，私钥加密保存
type APICredential struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	AgentAddress string    `gorm:"type:varchar(42);not null" json:"agent_address"`
	AgentName    string    `gorm:"type:varchar(64);not null" json:"agent_name"`
	KeyID        string    `gorm:"type:varchar(64);not null" json:"-"`
	Ciphertext   []byte    `gorm:"type:bytea;not null" json:"-"`
	ApprovedAt   time.Time `gorm:"not null" json:"approved_at"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (APICredential) TableName() string {
	return "api_credentials"
}
