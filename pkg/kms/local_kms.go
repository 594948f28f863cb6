package kms

import (
	"fmt"
	"sync"
	"time"

	"wallet-custody/pkg/crypto_util"
)

// keyEntry 是内部存储结构，包含密钥（敏感数据）和元数据
type keyEntry struct {
	Metadata KeyMetadata
	Secret   []byte
}

// LocalKMS 是 KeyManager 接口的本地内存实现。
// 密钥只存在于进程内存中，不直接暴露给外部。
type LocalKMS struct {
	mu        sync.RWMutex
	keys      map[string]*keyEntry
	defaultID string
}

// NewLocalKMS 创建一个新的 LocalKMS 实例。
func NewLocalKMS() *LocalKMS {
	return &LocalKMS{
		keys: make(map[string]*keyEntry),
	}
}

// NewLocalKMSWithMasterKey 导入主密钥并设为默认加密密钥
func NewLocalKMSWithMasterKey(master []byte) (*LocalKMS, error) {
	k := NewLocalKMS()
	if _, err := k.ImportKey(KeyTypeAES, master); err != nil {
		return nil, err
	}
	return k, nil
}

// CreateKey 创建一个新的密钥，并返回其 ID。
func (kms *LocalKMS) CreateKey(kType KeyType) (string, error) {
	if kType != KeyTypeAES {
		return "", fmt.Errorf("不支持的密钥类型: %s", kType)
	}

	keyID, err := crypto_util.RandomID(16)
	if err != nil {
		return "", fmt.Errorf("生成 KeyID 失败: %w", err)
	}
	secret, err := crypto_util.NewAESKey()
	if err != nil {
		return "", err
	}

	kms.store(keyID, kType, secret)
	return keyID, nil
}

// ImportKey 导入主密钥，KeyID 为 Blake3 指纹
func (kms *LocalKMS) ImportKey(kType KeyType, raw []byte) (string, error) {
	if kType != KeyTypeAES {
		return "", fmt.Errorf("不支持的密钥类型: %s", kType)
	}
	if len(raw) != crypto_util.AESKeySize {
		return "", ErrInvalidKey
	}

	secret := make([]byte, len(raw))
	copy(secret, raw)
	keyID := crypto_util.Fingerprint(secret)

	kms.store(keyID, kType, secret)
	return keyID, nil
}

func (kms *LocalKMS) store(keyID string, kType KeyType, secret []byte) {
	kms.mu.Lock()
	defer kms.mu.Unlock()

	kms.keys[keyID] = &keyEntry{
		Metadata: KeyMetadata{
			KeyID:     keyID,
			Type:      kType,
			CreatedAt: time.Now().Unix(),
			Enabled:   true,
		},
		Secret: secret,
	}
	if kms.defaultID == "" {
		kms.defaultID = keyID
	}
}

func (kms *LocalKMS) DefaultKeyID() string {
	kms.mu.RLock()
	defer kms.mu.RUnlock()
	return kms.defaultID
}

func (kms *LocalKMS) lookup(keyID string) (*keyEntry, error) {
	entry, exists := kms.keys[keyID]
	if !exists {
		return nil, ErrKeyNotFound
	}
	if !entry.Metadata.Enabled {
		return nil, ErrKeyDisabled
	}
	return entry, nil
}

// Encrypt 使用指定的密钥加密数据。
func (kms *LocalKMS) Encrypt(keyID string, plaintext, aad []byte) ([]byte, error) {
	kms.mu.RLock()
	defer kms.mu.RUnlock()

	entry, err := kms.lookup(keyID)
	if err != nil {
		return nil, err
	}
	return crypto_util.EncryptAESGCM(entry.Secret, plaintext, aad)
}

// Decrypt 使用指定的密钥解密数据。
func (kms *LocalKMS) Decrypt(keyID string, ciphertext, aad []byte) ([]byte, error) {
	kms.mu.RLock()
	defer kms.mu.RUnlock()

	entry, err := kms.lookup(keyID)
	if err != nil {
		return nil, err
	}
	return crypto_util.DecryptAESGCM(entry.Secret, ciphertext, aad)
}

// Disable 禁用并清零密钥
func (kms *LocalKMS) Disable(keyID string) error {
	kms.mu.Lock()
	defer kms.mu.Unlock()

	entry, exists := kms.keys[keyID]
	if !exists {
		return ErrKeyNotFound
	}
	entry.Metadata.Enabled = false
	crypto_util.Wipe(entry.Secret)
	return nil
}
