// Package hdwallet 从单个 BIP-39 助记词派生各链族的密钥对。
//
// Solana 使用 SLIP-10 ed25519 (m/44'/501'/0'/0')，
// EVM 使用 BIP-32 secp256k1 (m/44'/60'/0'/0/0)，同一个 EVM 密钥复用于所有 EVM 链。
package hdwallet

import (
	"fmt"

	"wallet-custody/pkg/address"
	"wallet-custody/pkg/bip32"
	"wallet-custody/pkg/bip39"
	"wallet-custody/pkg/crypto_util"

	"github.com/btcsuite/btcd/chaincfg"
)

const (
	SolanaPath = "m/44'/501'/0'/0'"
	EVMPath    = "m/44'/60'/0'/0/0"

	// MnemonicBits 128 位熵 = 12 个单词
	MnemonicBits = 128
)

// ErrInvalidMnemonic 助记词校验失败
var ErrInvalidMnemonic = bip39.ErrInvalidMnemonic

// Engine 密钥派生引擎，无状态，可并发使用
type Engine struct {
	mnemonics *bip39.MnemonicService
	evmAddr   *address.ETHGenerator
	solAddr   *address.SOLGenerator
}

func NewEngine() *Engine {
	return &Engine{
		mnemonics: bip39.NewMnemonicService(),
		evmAddr:   address.NewETHGenerator(),
		solAddr:   address.NewSOLGenerator(),
	}
}

// Generate 生成新的 12 词助记词并派生全部链族密钥对
func (e *Engine) Generate() (*bip39.Mnemonic, []*ChainKeyPair, error) {
	mnemonic, err := e.mnemonics.GenerateMnemonic(MnemonicBits)
	if err != nil {
		return nil, nil, err
	}

	pairs, err := e.Recover(mnemonic)
	if err != nil {
		mnemonic.Destroy()
		return nil, nil, err
	}
	return mnemonic, pairs, nil
}

// Recover 由已有助记词重新派生密钥对，结果与 Generate 时逐字节一致。
// 失败时不返回任何部分结果。
func (e *Engine) Recover(mnemonic *bip39.Mnemonic) ([]*ChainKeyPair, error) {
	// 1. 校验并生成种子
	seed, err := e.mnemonics.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer crypto_util.Wipe(seed)

	// 2. Solana (ed25519)
	sol, err := e.deriveSolana(seed)
	if err != nil {
		return nil, err
	}

	// 3. EVM (secp256k1)
	evm, err := e.deriveEVM(seed)
	if err != nil {
		sol.Destroy()
		return nil, err
	}

	return []*ChainKeyPair{sol, evm}, nil
}

func (e *Engine) deriveSolana(seed []byte) (*ChainKeyPair, error) {
	key, err := bip32.DeriveEd25519Path(seed, SolanaPath)
	if err != nil {
		return nil, fmt.Errorf("派生 Solana 密钥失败: %w", err)
	}
	defer key.Zero()

	addr, err := e.solAddr.PubKeyToAddress(key.PublicKey())
	if err != nil {
		return nil, err
	}

	return &ChainKeyPair{
		Family:     FamilySolana,
		Address:    addr,
		SigningKey: key.PrivateKey(),
	}, nil
}

func (e *Engine) deriveEVM(seed []byte) (*ChainKeyPair, error) {
	wallet, err := bip32.NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("生成 EVM 主密钥失败: %w", err)
	}
	defer wallet.Zero()

	child, err := wallet.DerivePath(EVMPath)
	if err != nil {
		return nil, fmt.Errorf("派生 EVM 密钥失败: %w", err)
	}
	defer child.Zero()

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	defer priv.Zero()

	addr, err := e.evmAddr.PubKeyToAddress(priv.PubKey().SerializeUncompressed())
	if err != nil {
		return nil, err
	}

	return &ChainKeyPair{
		Family:     FamilyEVM,
		Address:    addr,
		SigningKey: priv.Serialize(),
	}, nil
}
