package domain

import "time"

// APIKey is a bearer credential bound to one tenant. Only the SHA-256 hash
// of the token is stored.
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// ValidateAPIKey checks required API key fields.
func ValidateAPIKey(k *APIKey) error {
	if k.ID == "" {
		return NewDomainError(ErrCodeValidation, "api key ID is required")
	}
	if k.TenantID == "" {
		return NewDomainError(ErrCodeValidation, "tenant ID is required")
	}
	if k.KeyHash == "" {
		return NewDomainError(ErrCodeValidation, "key hash is required")
	}
	return nil
}
