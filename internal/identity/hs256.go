package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var staticSigningMethod = jwt.SigningMethodHS256

// StaticVerifier validates HS256 tokens signed with a shared secret.
// It exists for development and test environments where a remote OIDC
// issuer is not available.
type StaticVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewStaticVerifier(secret, issuer, audience string) (*StaticVerifier, error) {
	if secret == "" {
		return nil, errors.New("identity: static secret is required")
	}
	if issuer == "" {
		return nil, errors.New("identity: static issuer is required")
	}
	return &StaticVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	raw := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(
		rawToken,
		raw,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != staticSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return v.secret, nil
		},
		parserOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, _ := raw.GetSubject()
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	var expiry time.Time
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		expiry = exp.Time
	}

	claims := &Claims{
		Subject: subject,
		Expiry:  expiry,
		Raw:     map[string]any(raw),
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		claims.Name = name
	}
	return claims, nil
}
