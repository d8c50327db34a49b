// internal/authz/types.go
package authz

import (
	"strings"

	"apigateway/internal/apierr"
	"apigateway/internal/auth"

	"golang.org/x/exp/slices"
)

// aliases maps route-level user type names to canonical user types
var aliases = map[string]auth.UserType{
	"user":     auth.UserTypeCustomer,
	"customer": auth.UserTypeCustomer,
	"admin":    auth.UserTypeAdmin,
	"guest":    auth.UserTypeGuest,
}

// NormalizeUserType resolves a case-insensitive alias; ok is false for unknown aliases
func NormalizeUserType(alias string) (auth.UserType, bool) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(alias))]
	return t, ok
}

// NormalizeUserTypes resolves aliases, dropping unknown ones and duplicates
func NormalizeUserTypes(allowed []string) []auth.UserType {
	out := make([]auth.UserType, 0, len(allowed))
	for _, alias := range allowed {
		if t, ok := NormalizeUserType(alias); ok && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Policy is a precomputed user type check
type Policy func(identity *auth.Identity) error

// Authorize builds the check for a route's allowed user types. An empty
// normalized set admits any authenticated identity.
func Authorize(allowed []string) Policy {
	types := NormalizeUserTypes(allowed)

	return func(identity *auth.Identity) error {
		if identity == nil {
			return apierr.Unauthenticated()
		}
		if len(types) == 0 || slices.Contains(types, identity.UserType) {
			return nil
		}
		return apierr.Forbidden()
	}
}
