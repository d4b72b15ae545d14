package utils

import "strings"

// RedactEmail masks the local part of an email for logging:
// "alice@test.com" -> "al***@test.com". Anything without exactly one '@' becomes "***".
func RedactEmail(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}
	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}
	return local + "@" + domain
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
