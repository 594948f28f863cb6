package bip39

import (
	"encoding/hex"
	"errors"
	"testing"
)

const testVectorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	service := NewMnemonicService()

	// 测试 12 个单词 (128 bits)
	mnemonic12, err := service.GenerateMnemonic(128)
	if err != nil {
		t.Fatalf("生成 12 词助记词失败: %v", err)
	}
	if mnemonic12.WordCount() != 12 {
		t.Errorf("期望 12 个单词，得到 %d", mnemonic12.WordCount())
	}
	if !service.ValidateMnemonic(mnemonic12) {
		t.Errorf("生成的 12 词助记词无效")
	}

	// 测试 24 个单词 (256 bits)
	mnemonic24, err := service.GenerateMnemonic(256)
	if err != nil {
		t.Fatalf("生成 24 词助记词失败: %v", err)
	}
	if mnemonic24.WordCount() != 24 {
		t.Errorf("期望 24 个单词，得到 %d", mnemonic24.WordCount())
	}
}

func TestMnemonicToSeed(t *testing.T) {
	service := NewMnemonicService()

	// 已知的测试向量 (Test Vector)
	expectedSeedHex := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	seed, err := service.MnemonicToSeed(NewMnemonic(testVectorMnemonic), "")
	if err != nil {
		t.Fatalf("测试向量助记词无效: %v", err)
	}

	if seedHex := hex.EncodeToString(seed); seedHex != expectedSeedHex {
		t.Errorf("Seed 生成不匹配。\n预期: %s\n实际: %s", expectedSeedHex, seedHex)
	}
}

func TestMnemonicToSeed_NormalizesWhitespace(t *testing.T) {
	service := NewMnemonicService()

	a, err := service.MnemonicToSeed(NewMnemonic(testVectorMnemonic), "")
	if err != nil {
		t.Fatalf("%v", err)
	}
	b, err := service.MnemonicToSeed(NewMnemonic("  abandon abandon abandon abandon abandon abandon\nabandon abandon abandon abandon abandon about "), "")
	if err != nil {
		t.Fatalf("%v", err)
	}
	if hex.EncodeToString(a) != hex.EncodeToString(b) {
		t.Errorf("空白字符不应影响种子")
	}
}

func TestValidateMnemonic_Invalid(t *testing.T) {
	service := NewMnemonicService()

	invalid := NewMnemonic("hello world invalid mnemonic phrase designed to fail validation check")
	if service.ValidateMnemonic(invalid) {
		t.Errorf("期望验证失败，但验证通过了")
	}

	// 词表合法但校验和错误
	badChecksum := NewMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon")
	if _, err := service.MnemonicToSeed(badChecksum, ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("期望 ErrInvalidMnemonic，得到 %v", err)
	}
}

func TestMnemonicDestroy(t *testing.T) {
	m := NewMnemonic(testVectorMnemonic)
	if m.Destroyed() {
		t.Fatalf("新建助记词不应处于已销毁状态")
	}

	m.Destroy()
	m.Destroy()

	if !m.Destroyed() {
		t.Errorf("Destroy 后缓冲区应全部清零")
	}
	if m.WordCount() != 0 {
		t.Errorf("销毁后单词数应为 0")
	}
	if NewMnemonicService().ValidateMnemonic(m) {
		t.Errorf("销毁后的助记词不应通过校验")
	}
	if m.String() != "[REDACTED mnemonic]" {
		t.Errorf("String 不应泄露助记词")
	}
}
