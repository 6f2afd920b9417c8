package domain

import "time"

// Tenant is the doctor account owning records and index points. Search scope
// never crosses tenants.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ValidateTenant checks required tenant fields.
func ValidateTenant(t *Tenant) error {
	if t.ID == "" {
		return NewDomainError(ErrCodeValidation, "tenant ID is required")
	}
	if t.Name == "" {
		return NewDomainError(ErrCodeValidation, "tenant name is required")
	}
	return nil
}
