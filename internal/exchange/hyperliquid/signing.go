package hyperliquid

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// 用户签名类 action 固定使用的 EIP-712 域
const (
	signatureChainID = "0x66eee"
	domainName       = "HyperliquidSignTransaction"
	domainVersion    = "1"
)

var signatureChainIDInt = big.NewInt(0x66eee)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var (
	withdrawTypes = []apitypes.Type{
		{Name: "hyperliquidChain", Type: "string"},
		{Name: "destination", Type: "string"},
		{Name: "amount", Type: "string"},
		{Name: "time", Type: "uint64"},
	}
	approveAgentTypes = []apitypes.Type{
		{Name: "hyperliquidChain", Type: "string"},
		{Name: "agentAddress", Type: "address"},
		{Name: "agentName", Type: "string"},
		{Name: "nonce", Type: "uint64"},
	}
)

// Signature 交易所要求的 {r, s, v} 格式
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

// typedDataHash 计算 keccak256("\x19\x01" || domainSeparator || hashStruct(message))
func typedDataHash(primaryType string, fields []apitypes.Type, message apitypes.TypedDataMessage) ([]byte, error) {
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			primaryType:    fields,
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(signatureChainIDInt)),
			VerifyingContract: common.Address{}.Hex(),
		},
		Message: message,
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256(raw), nil
}

func signTypedData(key *ecdsa.PrivateKey, primaryType string, fields []apitypes.Type, message apitypes.TypedDataMessage) (*Signature, error) {
	hash, err := typedDataHash(primaryType, fields, message)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	return &Signature{
		R: hexutil.EncodeBig(new(big.Int).SetBytes(sig[:32])),
		S: hexutil.EncodeBig(new(big.Int).SetBytes(sig[32:64])),
		V: sig[64] + 27,
	}, nil
}

// recoverSigner 由签名还原地址，测试与自检使用
func recoverSigner(primaryType string, fields []apitypes.Type, message apitypes.TypedDataMessage, sig *Signature) (common.Address, error) {
	hash, err := typedDataHash(primaryType, fields, message)
	if err != nil {
		return common.Address{}, err
	}
	r, err := hexutil.DecodeBig(sig.R)
	if err != nil {
		return common.Address{}, err
	}
	s, err := hexutil.DecodeBig(sig.S)
	if err != nil {
		return common.Address{}, err
	}

	raw := make([]byte, 65)
	r.FillBytes(raw[:32])
	s.FillBytes(raw[32:64])
	raw[64] = sig.V - 27

	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
