package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/praxisworks/accounts-backend/pkg/config"
)

var (
	// ErrInvalidToken indicates the token failed verification for any
	// reason (bad signature, expired, wrong audience, malformed).
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrUnavailable indicates the verifier could not reach the
	// identity provider to complete verification.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

// Verifier checks a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// NewFromConfig builds the verifier selected by the OIDC mode.
func NewFromConfig(ctx context.Context, cfg config.OIDCConfig) (Verifier, error) {
	if cfg.IsStatic() {
		return NewStaticVerifier(cfg.DevSecret, cfg.DevIssuer, cfg.Audience)
	}
	return NewOIDCVerifier(ctx, cfg.IssuerURL, cfg.Audience)
}

// OIDCVerifier validates tokens against a remote OIDC issuer using its
// published JWKS.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and prepares a token verifier
// bound to the expected audience.
func NewOIDCVerifier(ctx context.Context, issuerURL, audience string) (*OIDCVerifier, error) {
	if issuerURL == "" {
		return nil, errors.New("identity: issuer url is required")
	}
	if audience == "" {
		return nil, errors.New("identity: audience is required")
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("identity: init oidc provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		if ctx.Err() != nil || isTransportError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw := map[string]any{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	claims := &Claims{
		Subject: idToken.Subject,
		Expiry:  idToken.Expiry,
		Raw:     raw,
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		claims.Name = name
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if !claims.Expiry.IsZero() && claims.Expiry.Before(time.Now()) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return claims, nil
}

// isTransportError distinguishes a provider outage from a bad token. The
// remote keyset does not always wrap the underlying transport error, so
// its fetch-failure prefix is matched as well.
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "fetching keys")
}
