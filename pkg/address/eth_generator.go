package address

import (
	"encoding/hex"
	"errors"
	"strings"

	"wallet-custody/pkg/crypto_util"
)

// ETHGenerator 以太坊 (及所有 EVM 链) 地址生成器
type ETHGenerator struct{}

func NewETHGenerator() *ETHGenerator {
	return &ETHGenerator{}
}

// PubKeyToAddress 将公钥字节 (非压缩格式, 65 bytes, 0x04...) 转换为 EIP-55 地址
func (g *ETHGenerator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	// 1. 去掉前缀 0x04 (如果存在)
	if len(pubKeyBytes) == 65 && pubKeyBytes[0] == 0x04 {
		pubKeyBytes = pubKeyBytes[1:]
	}
	if len(pubKeyBytes) != 64 {
		return "", errors.New("公钥长度必须为 64 字节 (去掉 0x04 前缀后)")
	}

	// 2. Keccak-256 哈希
	hash := crypto_util.Keccak256(pubKeyBytes)

	// 3. 取后 20 字节，Hex 编码并添加 EIP-55 校验和
	return "0x" + toChecksumAddress(hex.EncodeToString(hash[12:])), nil
}

// Validate 校验 0x 前缀的 20 字节地址；大小写混合时必须满足 EIP-55 校验
func (g *ETHGenerator) Validate(addr string) bool {
	if len(addr) != 42 || !(strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X")) {
		return false
	}
	body := addr[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}

	lower, upper := strings.ToLower(body), strings.ToUpper(body)
	if body == lower || body == upper {
		return true
	}
	return toChecksumAddress(body) == body
}

// toChecksumAddress 实现 EIP-55 混合大小写校验
func toChecksumAddress(address string) string {
	address = strings.ToLower(address)
	hexHash := hex.EncodeToString(crypto_util.Keccak256([]byte(address)))

	var sb strings.Builder
	for i := 0; i < len(address); i++ {
		char := address[i]
		// 检查 hash 的第 i 位是否 >= 8
		if hexCharToInt(hexHash[i]) >= 8 {
			sb.WriteString(strings.ToUpper(string(char)))
		} else {
			sb.WriteByte(char)
		}
	}
	return sb.String()
}

func hexCharToInt(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 10
	}
	return 0
}
