// internal/auth/projector.go
package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Claim names read by ProjectIdentity
const (
	ClaimSubject     = "sub"
	ClaimUserType    = "userType"
	ClaimRoles       = "roles"
	ClaimScopes      = "scopes"
	ClaimDeviceID    = "deviceId"
	ClaimFirebaseUID = "firebaseUid"
	ClaimGuestID     = "guestId"
	ClaimTenant      = "tenant"
	ClaimLanguageID  = "languageId"
)

// reservedClaims never enter the passthrough bag: either they feed a canonical
// field or they collide with a canonical field's name.
var reservedClaims = map[string]struct{}{
	ClaimSubject:     {},
	ClaimUserType:    {},
	ClaimRoles:       {},
	ClaimScopes:      {},
	ClaimDeviceID:    {},
	ClaimFirebaseUID: {},
	ClaimGuestID:     {},
	ClaimTenant:      {},
	ClaimLanguageID:  {},
	"id":             {},
	"subject":        {},
	"tenantId":       {},
}

// ProjectIdentity maps a verified claim set onto an Identity.
// It has no failure path: malformed optional claims fall back to defaults.
func ProjectIdentity(claims map[string]any) *Identity {
	passthrough := make(map[string]any, len(claims))
	for k, v := range claims {
		if _, reserved := reservedClaims[k]; !reserved {
			passthrough[k] = v
		}
	}

	subject := ""
	if sub, ok := claims[ClaimSubject]; ok && sub != nil {
		subject = claimString(sub)
	}

	userType := UserTypeGuest
	if raw, ok := claims[ClaimUserType].(string); ok {
		if t := UserType(strings.ToUpper(raw)); t.Valid() {
			userType = t
		}
	}

	roles := []string{}
	if userType == UserTypeAdmin {
		if list, ok := stringList(claims[ClaimRoles]); ok {
			roles = list
		}
	}

	scopes := []string{}
	if list, ok := stringList(claims[ClaimScopes]); ok {
		scopes = list
	}

	return &Identity{
		ID:          subject,
		Subject:     subject,
		UserType:    userType,
		Roles:       roles,
		Scopes:      scopes,
		DeviceID:    optionalString(claims, ClaimDeviceID),
		FirebaseUID: optionalString(claims, ClaimFirebaseUID),
		GuestID:     optionalString(claims, ClaimGuestID),
		TenantID:    optionalString(claims, ClaimTenant),
		LanguageID:  optionalString(claims, ClaimLanguageID),
		Claims:      passthrough,
	}
}

// stringList converts an array claim to strings; ok is false for non-arrays
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, claimString(item))
		}
		return out, true
	}
	return nil, false
}

// claimString renders a scalar claim. Numbers decode as float64, so they are
// formatted without an exponent: 1234567 stays "1234567".
func claimString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	}
	return fmt.Sprint(v)
}

func optionalString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
