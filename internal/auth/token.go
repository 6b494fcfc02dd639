package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mailmind/backend/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// TokenTTL is the lifetime of an issued bearer token.
const TokenTTL = 24 * time.Hour

// Claims is the bearer token payload. It references the identity and a few
// non-secret facts about it; provider access and refresh tokens are never
// embedded, so a leaked bearer token cannot read anyone's mailbox directly.
type Claims struct {
	PrimaryEmail     string `json:"email"`
	HasGoogleLink    bool   `json:"has_google_link"`
	HasMicrosoftLink bool   `json:"has_microsoft_link"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for the identity. The identity id travels
// in the subject claim.
func IssueToken(identity *models.Identity, secret string, now time.Time) (string, error) {
	claims := &Claims{
		PrimaryEmail:     identity.PrimaryEmail,
		HasGoogleLink:    identity.HasProvider(models.ProviderGoogle),
		HasMicrosoftLink: identity.HasProvider(models.ProviderMicrosoft),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken checks the signature and expiry and returns the claims.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
