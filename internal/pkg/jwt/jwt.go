package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims identify the requester of a feed. Tokens are issued elsewhere;
// GenerateToken exists for tooling and tests.
type Claims struct {
	IdentityID string `json:"identity_id"`
	jwtlib.RegisteredClaims
}

func GenerateToken(identityID string, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		IdentityID: identityID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IdentityID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
