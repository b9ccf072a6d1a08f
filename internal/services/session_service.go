package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/useyours/yours-backend/internal/cryptox"
)

// SessionCookie is the cookie carrying the session JWT.
const SessionCookie = "yours_session"

// SessionService mints and opens session tokens. The identity credential is
// sealed (AES-GCM under the application secret) inside the JWT's sub claim,
// so a captured cookie reveals nothing: the JWT signature gates acceptance
// and the seal gates the credential itself.
type SessionService struct {
	secret string
	ttl    time.Duration
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{secret: secret, ttl: ttl}
}

// ExchangeAuthToken opens a one-time native-app bootstrap token. ok=false
// for anything malformed or tampered.
func (s *SessionService) ExchangeAuthToken(token string) (credential string, ok bool) {
	return cryptox.ParseAuthToken(token, s.secret)
}

// MintSessionToken issues a session JWT for the credential.
func (s *SessionService) MintSessionToken(credential string) (string, error) {
	sealed, err := cryptox.Encrypt(credential, cryptox.SecretKey(s.secret))
	if err != nil {
		return "", fmt.Errorf("seal credential: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sealed,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// CredentialFromClaims unseals the credential from verified JWT claims.
func (s *SessionService) CredentialFromClaims(claims jwt.MapClaims) (string, bool) {
	sealed, ok := claims["sub"].(string)
	if !ok || sealed == "" {
		return "", false
	}
	credential, err := cryptox.Decrypt(sealed, cryptox.SecretKey(s.secret))
	if err != nil || credential == "" {
		return "", false
	}
	return credential, true
}

// TTL is the session lifetime, used for cookie expiry.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
