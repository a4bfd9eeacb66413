package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredential = errors.New("invalid credential")

// CredentialVerifier turns an opaque bearer credential into a stable user id.
type CredentialVerifier interface {
	Verify(ctx context.Context, raw string) (uuid.UUID, error)
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier verifies HS256 tokens whose subject is the user id. When
// issuer is set, tokens from any other issuer are rejected.
func NewJWTVerifier(secret, issuer string) CredentialVerifier {
	return &jwtVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (v *jwtVerifier) Verify(ctx context.Context, raw string) (uuid.UUID, error) {
	if len(v.secret) == 0 {
		return uuid.Nil, fmt.Errorf("%w: verifier has no secret", ErrInvalidCredential)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid or expired token", ErrInvalidCredential)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidCredential)
	}
	return userID, nil
}

// IssueToken signs a short-lived HS256 token for userID. Used by tests and
// the dev tooling; real credentials come from the identity provider.
func IssueToken(secret, issuer string, userID uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    strings.TrimSpace(issuer),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
