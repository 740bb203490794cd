package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskly/taskly-be/internal/apperror"
)

// TokenTTL is the validity window of an issued token.
const TokenTTL = 7 * 24 * time.Hour

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed bearer tokens. The signing secret
// is injected at construction, never read from the environment.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager with the default 7-day validity.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: TokenTTL}
}

// Issue creates a new signed token for the given user id.
func (m *TokenManager) Issue(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses a token string and returns the embedded user id. Malformed,
// expired and badly signed tokens all fail with an Auth error.
func (m *TokenManager) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", apperror.NewAuth("Please authenticate.", err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", apperror.NewAuth("Please authenticate.", nil)
	}
	return claims.UserID, nil
}
