package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/triggah61/acent-messenger-backend/internal/config"
)

// PurposeTwoFactor marks the short-lived token handed out between password
// and authenticator verification.
const PurposeTwoFactor = "2fa"

type Claims struct {
	UserID  string `json:"userId"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// GetJTI returns the token id used for revocation.
func (c *Claims) GetJTI() string {
	return c.ID
}

// GetExpiresAtTime returns the expiry, zero if the claim is missing.
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// GenerateToken issues a session token for the user.
func GenerateToken(userID string) (string, error) {
	ttl := config.AppConfig.JWTTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return signToken(userID, "", ttl)
}

// GeneratePurposeToken issues a token that is only accepted where its
// purpose is checked explicitly.
func GeneratePurposeToken(userID, purpose string, ttl time.Duration) (string, error) {
	return signToken(userID, purpose, ttl)
}

func signToken(userID, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    config.AppConfig.AppName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ValidateSessionToken rejects purpose-bound tokens.
func ValidateSessionToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, errors.New("token not valid for this request")
	}
	return claims, nil
}

func GenerateID() string {
	return uuid.New().String()
}
