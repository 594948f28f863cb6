package bip32

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"wallet-custody/pkg/crypto_util"
)

const ed25519SeedKey = "ed25519 seed"

// Ed25519Key SLIP-10 ed25519 扩展私钥
type Ed25519Key struct {
	key       []byte
	chainCode []byte
}

// NewEd25519MasterKey 由种子生成 SLIP-10 ed25519 主密钥
func NewEd25519MasterKey(seed []byte) (*Ed25519Key, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeed
	}

	mac := hmac.New(sha512.New, []byte(ed25519SeedKey))
	mac.Write(seed)
	sum := mac.Sum(nil)

	return &Ed25519Key{key: sum[:32], chainCode: sum[32:]}, nil
}

// Derive 派生硬化子密钥，ed25519 不支持非硬化派生
func (k *Ed25519Key) Derive(index uint32) (*Ed25519Key, error) {
	if index < HardenedKeyStart {
		return nil, ErrNonHardenedEd25519
	}

	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, k.key...)
	data = binary.BigEndian.AppendUint32(data, index)
	defer crypto_util.Wipe(data)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)

	return &Ed25519Key{key: sum[:32], chainCode: sum[32:]}, nil
}

// DeriveEd25519Path 从种子按路径派生 ed25519 密钥，中间密钥派生后清零
func DeriveEd25519Path(seed []byte, path string) (*Ed25519Key, error) {
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	current, err := NewEd25519MasterKey(seed)
	if err != nil {
		return nil, err
	}

	for _, index := range indexes {
		next, err := current.Derive(index)
		current.Zero()
		if err != nil {
			return nil, fmt.Errorf("派生路径 %s 失败: %w", path, err)
		}
		current = next
	}
	return current, nil
}

// Seed 返回 32 字节私钥种子 (内部缓冲区的副本)
func (k *Ed25519Key) Seed() []byte {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// ChainCode 返回链码副本
func (k *Ed25519Key) ChainCode() []byte {
	out := make([]byte, len(k.chainCode))
	copy(out, k.chainCode)
	return out
}

// PrivateKey 展开为 ed25519 私钥 (seed || pub)，调用方负责清零
func (k *Ed25519Key) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.key)
}

// PublicKey 返回 ed25519 公钥
func (k *Ed25519Key) PublicKey() ed25519.PublicKey {
	priv := k.PrivateKey()
	defer crypto_util.Wipe(priv)
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, priv[32:])
	return pub
}

// Zero 清零私钥与链码
func (k *Ed25519Key) Zero() {
	crypto_util.Wipe(k.key)
	crypto_util.Wipe(k.chainCode)
}
