package auth

import "strings"

// HasRole reports whether the caller's role is one of the allowed
// ones. Role strings come from JWT claims and are compared
// case-insensitively.
func HasRole(role string, allowed ...string) bool {
	if len(allowed) == 0 {
		return false
	}
	current := strings.ToUpper(strings.TrimSpace(role))
	for _, candidate := range allowed {
		if current == strings.ToUpper(candidate) {
			return true
		}
	}
	return false
}

func IsAdmin(role string) bool {
	return HasRole(role, "ADMIN")
}
