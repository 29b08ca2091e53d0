// ABOUTME: JWT tokens carrying the chat user's identity
// ABOUTME: HS256 signing and verification for the dev server, unverified decode for clients

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/coven-chat/internal/model"
)

// Token errors
var (
	ErrNoToken      = errors.New("no token configured")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims is the token payload. Subject is the user ID.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) user() (model.User, error) {
	if c.Subject == "" {
		return model.User{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return model.User{ID: c.Subject, FullName: c.Name, ProfilePic: c.Avatar}, nil
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (model.User, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the signature and expiry and returns the identity.
func (v *JWTVerifier) Verify(tokenString string) (model.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.User{}, ErrExpiredToken
		}
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return model.User{}, ErrInvalidToken
	}
	return claims.user()
}

// Generate signs a token for user that expires after expiresIn.
func (v *JWTVerifier) Generate(user model.User, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:   user.FullName,
		Avatar: user.ProfilePic,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ParseIdentity decodes the identity from a token without checking its
// signature. Clients do not hold the signing secret; the server verifies
// the token on every request. Expired tokens are still rejected so the
// user is told early.
func ParseIdentity(tokenString string) (model.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return model.User{}, ErrNoToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return model.User{}, ErrExpiredToken
	}
	return claims.user()
}
