package crypto_util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCM(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef") // 32 字节用于 AES-256
	plaintext := []byte("这是一条用于 AES-GCM 测试的秘密消息")

	ciphertext, err := EncryptAESGCM(key, plaintext, []byte("user-1"))
	if err != nil {
		t.Fatalf("EncryptAESGCM 失败: %v", err)
	}

	decrypted, err := DecryptAESGCM(key, ciphertext, []byte("user-1"))
	if err != nil {
		t.Fatalf("DecryptAESGCM 失败: %v", err)
	}

	if !bytes.Equal(plaintext, decrypted) {
		t.Errorf("解密后的消息与明文不匹配。\n得到: %s\n期望: %s", decrypted, plaintext)
	}
}

func TestAESGCM_AADMismatch(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	ciphertext, err := EncryptAESGCM(key, []byte("secret"), []byte("user-1"))
	require.NoError(t, err)

	_, err = DecryptAESGCM(key, ciphertext, []byte("user-2"))
	assert.Error(t, err)
}

func TestAESGCM_InvalidKey(t *testing.T) {
	_, err := EncryptAESGCM([]byte("shortkey"), []byte("test"), nil)
	if err == nil {
		t.Error("期望因密钥长度无效而报错，但未收到错误")
	}
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	assert.False(t, IsZeroed(buf))

	Wipe(buf)
	assert.True(t, IsZeroed(buf))
	assert.Len(t, buf, 4)
}

func TestHashes(t *testing.T) {
	input := []byte("hello world")

	assert.Len(t, CalculateSHA256(input), 64)
	assert.Equal(t, "47173285a8d7341e5e972fc677286384f802f8ef42a5ec5f03bbfa254cb01fad", CalculateKeccak256(input))
	assert.Len(t, CalculateBlake3(input), 64)
	assert.Len(t, Fingerprint(input), 16)
	assert.Equal(t, CalculateBlake3(input)[:16], Fingerprint(input))
}

func TestNewAESKey(t *testing.T) {
	k1, err := NewAESKey()
	require.NoError(t, err)
	k2, err := NewAESKey()
	require.NoError(t, err)

	assert.Len(t, k1, AESKeySize)
	assert.False(t, bytes.Equal(k1, k2))

	ct, err := EncryptAESGCM(k1, []byte("seed"), nil)
	require.NoError(t, err)
	_, err = DecryptAESGCM(k2, ct, nil)
	assert.Error(t, err)
}

func TestRandomID(t *testing.T) {
	id, err := RandomID(16)
	require.NoError(t, err)
	assert.Len(t, id, 32)
}
