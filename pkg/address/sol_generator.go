package address

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"
)

// SOLGenerator Solana 地址生成器，地址即 base58 编码的 ed25519 公钥
type SOLGenerator struct{}

func NewSOLGenerator() *SOLGenerator {
	return &SOLGenerator{}
}

func (g *SOLGenerator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return "", errors.New("ed25519 公钥长度必须为 32 字节")
	}
	return base58.Encode(pubKeyBytes), nil
}

func (g *SOLGenerator) Validate(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(decoded) == ed25519.PublicKeySize
}
