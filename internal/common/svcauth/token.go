// Package svcauth mints and verifies the HS256 service tokens used between
// the deskhand server and the connector gateway. Both sides share one signing
// key distributed through configuration.
package svcauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience is the audience claim carried by every service token.
const Audience = "deskhand-connector"

const clockSkew = 2 * time.Minute

// MintServiceToken creates a signed service token for the given issuer,
// valid for the given duration.
func MintServiceToken(signingKey []byte, issuer string, validity time.Duration) (string, error) {
	if len(signingKey) == 0 {
		return "", fmt.Errorf("signing key is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuer,
		"aud": []string{Audience},
		"exp": jwt.NewNumericDate(now.Add(validity)),
		"iat": jwt.NewNumericDate(now),
		"nbf": jwt.NewNumericDate(now.Add(-clockSkew)),
		"jti": uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("unable to sign service token: %w", err)
	}

	return tokenString, nil
}

// VerifyServiceToken validates the signature, audience and time claims of a
// service token and returns the issuer on success.
func VerifyServiceToken(signingKey []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return "", fmt.Errorf("invalid service token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid service token claims")
	}
	issuer, err := claims.GetIssuer()
	if err != nil {
		return "", fmt.Errorf("invalid service token issuer: %w", err)
	}

	return issuer, nil
}
