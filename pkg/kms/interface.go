package kms

import (
	"errors"
)

// KeyType 定义了支持的密钥类型
type KeyType string

const (
	KeyTypeAES KeyType = "AES" // 对称加密密钥 (AES-256-GCM)
)

// KeyMetadata 包含密钥的元数据，不包含敏感的密钥信息
type KeyMetadata struct {
	KeyID     string  `json:"key_id"`
	Type      KeyType `json:"type"`
	CreatedAt int64   `json:"created_at"`
	Enabled   bool    `json:"enabled"`
}

// KeyManager 定义了密钥管理服务的核心行为。
// 签名密钥落库前用它加密，允许后续替换为 HSM 或云端 KMS。
type KeyManager interface {
	// CreateKey 创建一个新的随机密钥，并返回其 ID。
	CreateKey(kType KeyType) (string, error)

	// ImportKey 导入外部主密钥，KeyID 由密钥指纹决定，重启后保持不变。
	ImportKey(kType KeyType, raw []byte) (string, error)

	// DefaultKeyID 返回当前用于加密新数据的密钥 ID。
	DefaultKeyID() string

	// Encrypt 使用指定的密钥加密数据，aad 绑定密文归属 (如 user_id)。
	Encrypt(keyID string, plaintext, aad []byte) ([]byte, error)

	// Decrypt 使用指定的密钥解密数据。
	Decrypt(keyID string, ciphertext, aad []byte) ([]byte, error)

	// Disable 禁用密钥，之后所有操作返回 ErrKeyDisabled。
	Disable(keyID string) error
}

var (
	ErrKeyNotFound   = errors.New("密钥未找到")
	ErrKeyDisabled   = errors.New("密钥已禁用")
	ErrUnsupportedOp = errors.New("该密钥类型不支持此操作")
	ErrInvalidKey    = errors.New("密钥长度必须为 32 字节")
)
