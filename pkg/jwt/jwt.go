package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims identify the caller. Role is informational; authorization always
// uses the role stored on the user record.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager verifies bearer tokens from the identity provider. Generate
// exists for local demo accounts and tests.
type JWTManager struct {
	secretKey []byte
	duration  time.Duration
	issuer    string
	leeway    time.Duration
}

type Option func(*JWTManager)

// WithIssuer stamps iss on generated tokens and requires it on verified ones.
func WithIssuer(issuer string) Option {
	return func(m *JWTManager) { m.issuer = issuer }
}

// WithLeeway tolerates clock skew between this service and the issuer.
func WithLeeway(d time.Duration) Option {
	return func(m *JWTManager) { m.leeway = d }
}

func NewJWTManager(secretKey string, duration time.Duration, opts ...Option) *JWTManager {
	m := &JWTManager{
		secretKey: []byte(secretKey),
		duration:  duration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Generate issues an HS256 token for userID.
func (m *JWTManager) Generate(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify checks signature, expiry and issuer and returns the claims.
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%w: subject does not match userId", ErrInvalidToken)
	}
	return claims, nil
}
