// internal/auth/types.go
package auth

import (
	"maps"
	"net/http"
)

// UserType is the canonical class of a caller
type UserType string

const (
	UserTypeAdmin    UserType = "ADMIN"
	UserTypeCustomer UserType = "CUSTOMER"
	UserTypeGuest    UserType = "GUEST"
)

// Valid reports whether t is one of the canonical user types
func (t UserType) Valid() bool {
	switch t {
	case UserTypeAdmin, UserTypeCustomer, UserTypeGuest:
		return true
	}
	return false
}

// Identity represents an authenticated caller, projected from verified token claims
type Identity struct {
	// ID equals Subject
	ID string
	// Subject is the verified sub claim
	Subject string
	// UserType is always one of the canonical user types
	UserType UserType
	// Roles is only populated for admins
	Roles []string
	// Scopes granted to the token
	Scopes []string

	DeviceID    string
	FirebaseUID string
	GuestID     string
	TenantID    string
	LanguageID  string

	// Claims holds the remaining verified claims. Canonical names are never present.
	Claims map[string]any
}

// Attributes returns the passthrough claims merged with the canonical fields.
// Canonical fields are written last so a claim can never shadow them.
func (i *Identity) Attributes() map[string]any {
	out := make(map[string]any, len(i.Claims)+12)
	maps.Copy(out, i.Claims)

	out["id"] = i.ID
	out["subject"] = i.Subject
	out["userType"] = string(i.UserType)
	out["roles"] = append([]string{}, i.Roles...)
	out["scopes"] = append([]string{}, i.Scopes...)
	setIfNotEmpty(out, "deviceId", i.DeviceID)
	setIfNotEmpty(out, "firebaseUid", i.FirebaseUID)
	setIfNotEmpty(out, "guestId", i.GuestID)
	setIfNotEmpty(out, "tenantId", i.TenantID)
	setIfNotEmpty(out, "languageId", i.LanguageID)
	return out
}

func setIfNotEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	} else {
		delete(m, key)
	}
}

// Authenticator defines the interface for authentication methods
type Authenticator interface {
	// Name returns the name of this authenticator
	Name() string

	// GetMiddleware returns an http.Handler middleware that performs authentication
	GetMiddleware(next http.Handler) http.Handler
}
