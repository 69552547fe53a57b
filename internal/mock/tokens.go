package mock

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates access tokens from refresh tokens so neither can stand
// in for the other.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

const issuer = "gkstore-mock"

type Claims struct {
	UserID string    `json:"sub"`
	Role   string    `json:"role"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("missing secret")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("invalid token lifetime")
	}
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// TTL returns the lifetime of tokens of kind.
func (t *Tokens) TTL(kind TokenKind) time.Duration {
	if kind == RefreshToken {
		return t.refreshTTL
	}
	return t.accessTTL
}

// Issue signs a token of kind for the user.
func (t *Tokens) Issue(u *User, kind TokenKind) (string, error) {
	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", err
	}
	now := t.now()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL(kind))),
			ID:        hex.EncodeToString(jti),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token and checks that it is a valid token of kind.
func (t *Tokens) Verify(raw string, kind TokenKind) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("missing token")
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Kind != kind {
		return nil, errors.New("wrong token kind")
	}
	return claims, nil
}
