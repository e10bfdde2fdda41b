// Package auth signs and parses the HS256 tokens used by the server: bearer
// session tokens and the verification tokens embedded in QR codes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/certhub/internal/common"
	"github.com/dmitrijs2005/certhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	kindSession      = "session"
	kindVerification = "verify"
)

// Claims is the session claim set carried by bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind     string      `json:"kind"`
	ActorID  int64       `json:"actor_id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	Verified bool        `json:"verified"`
}

// VerificationClaims names the identifier a QR code vouches for. The
// subject is either a certificate id or a holder identifier.
type VerificationClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

func (c *VerificationClaims) Identifier() string { return c.Subject }

func GenerateToken(actor *models.Actor, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Kind:     kindSession,
		ActorID:  actor.ID,
		Email:    actor.Email,
		Role:     actor.Role,
		Verified: actor.DomainVerified,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates a session token. Expired tokens yield
// common.ErrTokenExpired, anything else unusable common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.Kind != kindSession || claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// GenerateVerificationToken signs identifier. The token does not expire and
// its bytes depend only on the arguments, so re-rendering a certificate
// reproduces the same QR code.
func GenerateVerificationToken(identifier string, issuedAt time.Time, secretKey []byte) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("%w: empty identifier", common.ErrValidation)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identifier,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		Kind: kindVerification,
	})
	return token.SignedString(secretKey)
}

func ParseVerificationToken(tokenString string, secretKey []byte) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	if err := parse(tokenString, claims, secretKey); err != nil {
		return nil, err
	}
	if claims.Kind != kindVerification || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func parse(tokenString string, claims jwt.Claims, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
