package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const verifyEmailPurpose = "verify-email"

// TokenClaims represents the claims in an access token
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type verificationClaims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies stateless access tokens. The secret is
// injected at construction, never read from a process-wide global, so tests
// can run with an isolated secret.
type TokenManager struct {
	secretKey []byte
	accessTTL time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secretKey string, accessTTL time.Duration) *TokenManager {
	if accessTTL == 0 {
		accessTTL = time.Hour
	}
	return &TokenManager{
		secretKey: []byte(secretKey),
		accessTTL: accessTTL,
	}
}

// GenerateToken creates a new signed access token binding the account id and
// email. Validity is determined purely by signature and expiry; there is no
// server-side lookup, so issued tokens cannot be revoked mid-lifetime.
func (tm *TokenManager) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken validates an access token and returns the claims
func (tm *TokenManager) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateVerificationToken signs a 24h token embedded in the email
// verification link.
func (tm *TokenManager) GenerateVerificationToken(userID string) (string, error) {
	now := time.Now()
	claims := verificationClaims{
		UserID:  userID,
		Purpose: verifyEmailPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateVerificationToken checks an email verification token and returns
// the account id it was issued for. Access tokens are rejected here: the
// purpose claim must match.
func (tm *TokenManager) ValidateVerificationToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &verificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*verificationClaims)
	if !ok || !token.Valid || claims.Purpose != verifyEmailPurpose {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
