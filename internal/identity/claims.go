package identity

import "time"

// Claims is the provider-agnostic view of a verified bearer token.
type Claims struct {
	// Subject is the provider-assigned stable identifier for the account.
	Subject string
	// Email as asserted by the identity provider. May be empty for
	// providers that do not include it in the token.
	Email string
	// Name is the display name claim, when present.
	Name string
	// Expiry is the token expiration instant.
	Expiry time.Time
	// Raw holds the full decoded claim set for callers that need
	// provider-specific fields.
	Raw map[string]any
}
