package crypto_util

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// CalculateSHA256 计算输入的 SHA256 哈希值。
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Keccak256 返回原始 Keccak256 摘要 (以太坊地址与 EIP-55 校验使用)
func Keccak256(data ...[]byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}
	return hash.Sum(nil)
}

// CalculateKeccak256 计算输入的 Keccak256 哈希值。
func CalculateKeccak256(data []byte) string {
	return hex.EncodeToString(Keccak256(data))
}

// CalculateBlake3 计算输入的 Blake3 哈希值。
func CalculateBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint 返回 Blake3 摘要的前 8 字节 (hex)，用于标识密钥而不暴露密钥本身
func Fingerprint(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
