// Package auth implements the session primitives: signed session tokens,
// password hashing and the cookie that carries the token.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. IssuedAt and ExpiresAt live in
// the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// TokenCodec issues and verifies HS256 session tokens. It holds no state
// besides its configuration and is safe for concurrent use.
type TokenCodec struct {
	secretKey []byte
	lifetime  time.Duration
	now       func() time.Time
}

// NewTokenCodec returns a codec signing with secretKey and issuing tokens
// valid for lifetime.
func NewTokenCodec(secretKey []byte, lifetime time.Duration) *TokenCodec {
	return &TokenCodec{
		secretKey: secretKey,
		lifetime:  lifetime,
		now:       time.Now,
	}
}

// Lifetime reports how long issued tokens stay valid.
func (c *TokenCodec) Lifetime() time.Duration { return c.lifetime }

// Issue signs a token for the given identity.
func (c *TokenCodec) Issue(userID, email string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		UserID: userID,
		Email:  email,
	})

	return token.SignedString(c.secretKey)
}

// Verify checks signature and expiry. It returns common.ErrTokenExpired for
// an expired token and common.ErrInvalidToken for anything else that does
// not verify. It performs no I/O.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
