package hdwallet

import (
	"sync"

	"wallet-custody/pkg/crypto_util"
)

// Family 链族：同一链族内的所有链共享一套密钥与地址
type Family string

const (
	FamilySolana Family = "solana"
	FamilyEVM    Family = "evm"
)

// ChainKeyPair 某链族的地址与签名密钥。
// SigningKey: Solana 为 64 字节 ed25519 私钥，EVM 为 32 字节 secp256k1 标量。
type ChainKeyPair struct {
	Family     Family
	Address    string
	SigningKey []byte

	once sync.Once
}

// Destroy 清零签名密钥，可重复调用
func (k *ChainKeyPair) Destroy() {
	k.once.Do(func() {
		crypto_util.Wipe(k.SigningKey)
	})
}

// Destroyed 签名密钥是否已全部清零
func (k *ChainKeyPair) Destroyed() bool {
	return crypto_util.IsZeroed(k.SigningKey)
}

// DestroyAll 清零一组密钥对
func DestroyAll(pairs []*ChainKeyPair) {
	for _, p := range pairs {
		if p != nil {
			p.Destroy()
		}
	}
}

// Find 按链族查找密钥对
func Find(pairs []*ChainKeyPair, family Family) *ChainKeyPair {
	for _, p := range pairs {
		if p != nil && p.Family == family {
			return p
		}
	}
	return nil
}
