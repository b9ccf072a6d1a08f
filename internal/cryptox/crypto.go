package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSize = 12
	tagSize   = 16

	// KeySize is the AES-256 key length produced by DeriveKey.
	KeySize = 32

	kdfIterations = 100_000
	kdfSalt       = "yours-resonance-salt"
)

var (
	// ErrMissingKey means a field operation ran without an attached
	// credential. This is a sequencing bug in the caller, not bad data.
	ErrMissingKey = errors.New("cryptox: no encryption key attached")

	// ErrDecryptFailed means the ciphertext failed GCM authentication:
	// tampered data, corruption, or the wrong key.
	ErrDecryptFailed = errors.New("cryptox: ciphertext authentication failed")
)

// DeriveKey stretches an identity credential into a per-user AES-256 key.
// Deterministic for a given credential, infeasible to reverse from leaked
// ciphertext without it.
func DeriveKey(credential string) []byte {
	return pbkdf2.Key([]byte(credential), []byte(kdfSalt), kdfIterations, KeySize, sha256.New)
}

// SecretKey turns a high-entropy application secret into an AES-256 key.
// Unlike DeriveKey there is no stretching; the secret is not guessable.
func SecretKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// HashCredential returns the hex SHA-256 of a credential. Used as the durable
// record primary key so the credential itself is never stored.
func HashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// Encrypt seals plaintext with AES-256-GCM. The returned token is
// base64(nonce ‖ tag ‖ ciphertext) with a fresh random nonce per call.
func Encrypt(plaintext string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrMissingKey
	}

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Go appends the tag to the ciphertext; the wire layout wants it up
	// front, fixed-offset: nonce [0:12), tag [12:28), ciphertext [28:).
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+tagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Empty input is a no-op returning "", nil:
// an absent field is absence, never an error. An unusable blob or a wrong
// key yields ErrDecryptFailed.
func Decrypt(encoded string, key []byte) (string, error) {
	if encoded == "" {
		return "", nil
	}
	if len(key) == 0 {
		return "", ErrMissingKey
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(blob) < nonceSize+tagSize {
		return "", fmt.Errorf("%w: blob too short", ErrDecryptFailed)
	}

	nonce := blob[:nonceSize]
	tag := blob[nonceSize : nonceSize+tagSize]
	ct := blob[nonceSize+tagSize:]

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
