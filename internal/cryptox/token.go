package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Native apps bootstrap a session by presenting a one-time auth token minted
// server-side after the external sign-in completes. The token is stateless
// and self-contained:
//
//	{sha256(credential)}.{b64url(nonce ‖ tag ‖ aes-gcm(credential))}.{hmac}
//
// The credential is sealed with a key derived from the application secret,
// and the whole payload is HMAC-signed so tampering is detectable before any
// decryption is attempted.

// GenerateAuthToken mints a bootstrap token for the given credential.
func GenerateAuthToken(credential, secret string) (string, error) {
	sealed, err := Encrypt(credential, SecretKey(secret))
	if err != nil {
		return "", err
	}
	// Encrypt emits std base64; re-encode for URL safety since the token
	// travels through a redirect URL scheme.
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	payload := HashCredential(credential) + "." + base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + sign(payload, secret), nil
}

// ParseAuthToken verifies and opens a bootstrap token. Any malformed,
// tampered, or wrongly-keyed token yields ok=false; callers treat that as
// a failed sign-in, never as an internal error.
func ParseAuthToken(token, secret string) (credential string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	hash, encoded, signature := parts[0], parts[1], parts[2]

	payload := hash + "." + encoded
	if !hmac.Equal([]byte(signature), []byte(sign(payload, secret))) {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	credential, err = Decrypt(base64.StdEncoding.EncodeToString(raw), SecretKey(secret))
	if err != nil || credential == "" {
		return "", false
	}
	if HashCredential(credential) != hash {
		return "", false
	}
	return credential, true
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
