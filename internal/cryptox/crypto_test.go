package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey("k1")

	for _, plaintext := range []string{
		"hello",
		"",
		"multi\nline\ncontent with unicode: 🤲 héllo",
		`{"role":"user","content":[{"type":"text","text":"hi"}]}`,
	} {
		encoded, err := Encrypt(plaintext, key)
		require.NoError(t, err)
		require.NotEmpty(t, encoded)

		got, err := Decrypt(encoded, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := testKey("k1")

	a, err := Encrypt("same plaintext", key)
	require.NoError(t, err)
	b, err := Encrypt("same plaintext", key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEncrypt_BlobLayout(t *testing.T) {
	key := testKey("k1")

	encoded, err := Encrypt("abc", key)
	require.NoError(t, err)

	blob, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// nonce(12) + tag(16) + 3 bytes of ciphertext
	assert.Len(t, blob, nonceSize+tagSize+3)
}

func TestDecrypt_WrongKey(t *testing.T) {
	encoded, err := Encrypt("secret", testKey("k1"))
	require.NoError(t, err)

	_, err = Decrypt(encoded, testKey("k2"))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestDecrypt_Tampered(t *testing.T) {
	key := testKey("k1")
	encoded, err := Encrypt("secret", key)
	require.NoError(t, err)

	blob, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(blob)

	_, err = Decrypt(tampered, key)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestDecrypt_GarbageInput(t *testing.T) {
	_, err := Decrypt("not base64!!!", testKey("k1"))
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = Decrypt(base64.StdEncoding.EncodeToString([]byte("short")), testKey("k1"))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestDecrypt_EmptyInputIsNoOp(t *testing.T) {
	got, err := Decrypt("", testKey("k1"))
	assert.NoError(t, err)
	assert.Empty(t, got)

	// No key needed for the no-op path.
	got, err = Decrypt("", nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecrypt_MissingKey(t *testing.T) {
	encoded, err := Encrypt("secret", testKey("k1"))
	require.NoError(t, err)

	_, err = Decrypt(encoded, nil)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.NotErrorIs(t, err, ErrDecryptFailed)
}

func TestEncrypt_MissingKey(t *testing.T) {
	_, err := Encrypt("secret", nil)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	k1 := DeriveKey("google-subject-123")
	k2 := DeriveKey("google-subject-123")
	k3 := DeriveKey("google-subject-456")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, KeySize)
}

func TestHashCredential(t *testing.T) {
	h1 := HashCredential("google-subject-123")
	h2 := HashCredential("google-subject-123")

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotContains(t, h1, "google")
}
