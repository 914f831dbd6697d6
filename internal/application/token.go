package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenIssuer   = "attendance-system"
	TokenAudience = "store-employees"
)

// SessionClaims is the payload of a session token. The registered ID claim
// carries the session row identifier.
type SessionClaims struct {
	Role       string `json:"role"`
	EmployeeID string `json:"employeeId"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner constructs a TokenSigner. The secret must not be empty.
func NewTokenSigner(secret string, now func() time.Time) (*TokenSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token signer: empty secret")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenSigner{secret: []byte(secret), now: now}, nil
}

// Sign encodes the session for user into a signed token.
func (s *TokenSigner) Sign(user User, session Session) (string, error) {
	claims := SessionClaims{
		Role:       user.Role.String(),
		EmployeeID: user.EmployeeID,
		Email:      user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer, audience and expiry of token.
// An expired token yields ErrSessionExpired; any other failure ErrUnauthorized.
func (s *TokenSigner) Parse(token string) (SessionClaims, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return SessionClaims{}, fmt.Errorf("%w: token missing subject or id", ErrUnauthorized)
	}
	return claims, nil
}
