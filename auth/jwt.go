package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cwcinspect/models"
)

// SessionCookieName holds the access token for browser clients.
const SessionCookieName = "cwc_session"

const issuer = "cwcinspect"

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

// Claims represents the JWT claims. The officer snapshot lets a session
// survive a roster reload that no longer contains the officer.
type Claims struct {
	OfficerID    string       `json:"officer_id"`
	Name         string       `json:"name"`
	Designation  string       `json:"designation,omitempty"`
	Level        models.Level `json:"level"`
	Jurisdiction string       `json:"jurisdiction,omitempty"`
	Type         string       `json:"typ"`
	jwt.RegisteredClaims
}

// Officer rebuilds the officer snapshot carried by the claims.
func (c *Claims) Officer() models.Officer {
	return models.Officer{
		ID:           c.OfficerID,
		Name:         c.Name,
		Designation:  c.Designation,
		Level:        c.Level,
		Jurisdiction: c.Jurisdiction,
	}
}

// JWTManager handles JWT token generation and validation
type JWTManager struct {
	secretKey              []byte
	tokenExpiration        time.Duration
	refreshTokenExpiration time.Duration
	now                    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenExpiration, refreshTokenExpiration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:              []byte(secretKey),
		tokenExpiration:        tokenExpiration,
		refreshTokenExpiration: refreshTokenExpiration,
		now:                    time.Now,
	}
}

// TokenExpiration is the lifetime of access tokens.
func (m *JWTManager) TokenExpiration() time.Duration {
	return m.tokenExpiration
}

// GenerateToken generates an access token for an officer
func (m *JWTManager) GenerateToken(officer models.Officer) (string, error) {
	token, err := m.sign(officer, TokenTypeAccess, m.tokenExpiration)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken generates a refresh token with longer expiration
func (m *JWTManager) GenerateRefreshToken(officer models.Officer) (string, error) {
	token, err := m.sign(officer, TokenTypeRefresh, m.refreshTokenExpiration)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

func (m *JWTManager) sign(officer models.Officer, typ string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		OfficerID:    officer.ID,
		Name:         officer.Name,
		Designation:  officer.Designation,
		Level:        officer.Level,
		Jurisdiction: officer.Jurisdiction,
		Type:         typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   officer.ID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// ValidateToken validates an access token and returns the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns the claims.
// Access tokens are rejected so they cannot be exchanged for new ones.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, TokenTypeRefresh)
}

func (m *JWTManager) validate(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, typ)
	}
	return claims, nil
}

// ExtractToken extracts the token from the Authorization header
// Expected format: "Bearer <token>"
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is empty")
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}
