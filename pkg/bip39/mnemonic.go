package bip39

import (
	"fmt"
	"strings"
	"sync"

	"wallet-custody/pkg/crypto_util"
	"wallet-custody/pkg/errno"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic 助记词词表或校验和不合法
var ErrInvalidMnemonic = errno.ErrInvalidMnemonic

// Mnemonic 持有助记词原文的可清零副本。
// 用完必须调用 Destroy，Destroy 后不可再使用。
type Mnemonic struct {
	mu     sync.Mutex
	phrase []byte
}

// NewMnemonic 从字符串复制一份助记词。
// 注意 Go 字符串不可变无法清零，调用方应尽快丢弃原字符串。
func NewMnemonic(phrase string) *Mnemonic {
	normalized := strings.Join(strings.Fields(phrase), " ")
	return &Mnemonic{phrase: []byte(normalized)}
}

// Phrase 返回助记词文本，仅用于一次性展示给用户
func (m *Mnemonic) Phrase() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.phrase)
}

// WordCount 返回单词个数
func (m *Mnemonic) WordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if crypto_util.IsZeroed(m.phrase) {
		return 0
	}
	return len(strings.Fields(string(m.phrase)))
}

// Destroy 原地清零，可重复调用
func (m *Mnemonic) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	crypto_util.Wipe(m.phrase)
}

// Destroyed 报告底层缓冲区是否已全部清零
func (m *Mnemonic) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return crypto_util.IsZeroed(m.phrase)
}

// String 防止助记词被意外打印到日志
func (m *Mnemonic) String() string {
	return "[REDACTED mnemonic]"
}

// MnemonicService 提供助记词相关的功能
type MnemonicService struct{}

// NewMnemonicService 创建一个新的助记词服务实例
func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic 生成一个新的随机助记词 (BIP-39)。
// bitSize: 熵的位数，通常为 128 (12个单词) 或 256 (24个单词)。
func (s *MnemonicService) GenerateMnemonic(bitSize int) (*Mnemonic, error) {
	// 1. 生成熵
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return nil, fmt.Errorf("生成熵失败: %v", err)
	}
	defer crypto_util.Wipe(entropy)

	// 2. 从熵生成助记词
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("生成助记词失败: %v", err)
	}

	return NewMnemonic(phrase), nil
}

// ValidateMnemonic 验证助记词是否有效 (词表 + 校验和)。
func (s *MnemonicService) ValidateMnemonic(m *Mnemonic) bool {
	if m == nil || m.Destroyed() {
		return false
	}
	return bip39.IsMnemonicValid(m.Phrase())
}

// MnemonicToSeed 将助记词转换为种子 (BIP-39 Seed)。
// password: 可选的密码 (Passphrase)，不需要时传空字符串 ""。
// 返回的种子由调用方负责清零。
func (s *MnemonicService) MnemonicToSeed(m *Mnemonic, password string) ([]byte, error) {
	if !s.ValidateMnemonic(m) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(m.Phrase(), password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}
