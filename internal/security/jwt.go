package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the envelope payload. The membership snapshot (UserID plus
// PassiveUserIDs) is advisory; the rows behind the jti are authoritative.
type Claims struct {
	TokenType      string `json:"token_type"`
	UserID         uint   `json:"user_id"`
	PassiveUserIDs []uint `json:"passive_user_ids,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the two envelope kinds with kind-specific
// secrets and lifetimes.
type TokenCodec struct {
	issuer        string
	audience      string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenCodec(issuer, audience, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		issuer:        issuer,
		audience:      audience,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *TokenCodec) SignAccessToken(jti string, userID uint, passiveUserIDs []uint) (string, error) {
	return c.sign(jti, userID, passiveUserIDs, "access", c.accessSecret, c.accessTTL)
}

func (c *TokenCodec) SignRefreshToken(jti string, userID uint, passiveUserIDs []uint) (string, error) {
	return c.sign(jti, userID, passiveUserIDs, "refresh", c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) ParseAccessToken(raw string) (*Claims, error) {
	return c.parse(raw, c.accessSecret, "access")
}

func (c *TokenCodec) ParseRefreshToken(raw string) (*Claims, error) {
	return c.parse(raw, c.refreshSecret, "refresh")
}

func (c *TokenCodec) sign(jti string, userID uint, passiveUserIDs []uint, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		TokenType:      tokenType,
		UserID:         userID,
		PassiveUserIDs: passiveUserIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  []string{c.audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *TokenCodec) parse(raw string, secret []byte, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithAudience(c.audience))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("unexpected token type: %s", claims.TokenType)
	}
	if claims.ID == "" {
		return nil, errors.New("missing jti")
	}
	return claims, nil
}
