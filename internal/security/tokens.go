package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// FileTokenClaims grants read access to one stored object
type FileTokenClaims struct {
	Object string `json:"obj"`
	jwt.RegisteredClaims
}

// FileTokenSigner issues and verifies HS256 download tokens embedded in
// public file URLs.
type FileTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewFileTokenSigner creates a signer. A zero ttl issues tokens without expiry.
func NewFileTokenSigner(secret string, ttl time.Duration) *FileTokenSigner {
	return &FileTokenSigner{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token for the object key
func (s *FileTokenSigner) Sign(object string) (string, error) {
	now := time.Now()
	claims := FileTokenClaims{
		Object: object,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			ID:       GenerateSessionID(),
		},
	}
	if s.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks that token is valid and was issued for object
func (s *FileTokenSigner) Verify(tokenString, object string) error {
	claims := &FileTokenClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Object != object {
		return ErrInvalidToken
	}
	return nil
}
