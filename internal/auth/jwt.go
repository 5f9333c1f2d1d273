package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finease/internal/core"
)

// JWTProvider verifies HS256 bearer tokens issued by the identity service.
// The subject claim carries the owner id; name, email and picture are
// optional profile claims.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret []byte) *JWTProvider {
	return &JWTProvider{secret: secret}
}

func (p *JWTProvider) Resolve(_ context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, core.ErrNotAuthenticated
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Identity{}, core.ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, core.ErrNotAuthenticated
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: %v", core.ErrNotAuthenticated, errMissingOwner)
	}

	return Identity{
		OwnerID:   sub,
		Name:      stringClaim(claims, "name"),
		Email:     stringClaim(claims, "email"),
		AvatarURL: stringClaim(claims, "picture"),
	}, nil
}

// IssueToken signs a token for the given identity; used by the dev backend
// and tests.
func (p *JWTProvider) IssueToken(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": id.OwnerID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if id.Name != "" {
		claims["name"] = id.Name
	}
	if id.Email != "" {
		claims["email"] = id.Email
	}
	if id.AvatarURL != "" {
		claims["picture"] = id.AvatarURL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
