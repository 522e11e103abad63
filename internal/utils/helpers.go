// Package utils provides utility functions and helpers for common operations
// used throughout the application. It includes request helpers, data
// sanitization and small string utilities.
package utils

import (
	"net"
	"net/http"
	"strings"

	"github.com/mundocerca/backend/internal/constants"
)

// ClientIP returns the address of the requesting client.
// It relies on chi's RealIP middleware having already rewritten RemoteAddr
// from the trusted proxy headers.
//
// Parameters:
//   - r: the incoming request
//
// Returns:
//   - the client IP without port, or "unknown" when RemoteAddr is empty
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return constants.UnknownClientIP
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// RealIP stores the bare header value, which carries no port
		return addr
	}
	return host
}

// MaskEmail masks the user part of an email address, showing only the first and last character.
// This is useful for privacy and GDPR compliance when displaying or logging email addresses.
//
// For example: "user@example.com" becomes "u**r@example.com"
//
// Parameters:
//   - email: the email address to mask
//
// Returns:
//   - the masked email address, or the original string if it's not a valid email format
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	user := parts[0]
	domain := parts[1]

	if len(user) <= 2 {
		return strings.Repeat("*", len(user)) + "@" + domain
	}

	return string(user[0]) + strings.Repeat("*", len(user)-2) + string(user[len(user)-1]) + "@" + domain
}

// SanitizeKeys removes potentially sensitive fields from a map.
// It recursively traverses through maps and slices of maps to sanitize nested structures.
//
// Parameters:
//   - data: the map to sanitize
//
// Returns:
//   - a new map with sensitive values redacted
func SanitizeKeys(data map[string]interface{}) map[string]interface{} {
	sensitiveKeys := map[string]bool{
		constants.ColumnPasswordHash:   true,
		constants.ColumnOTPHash:        true,
		constants.ColumnResetTokenHash: true,
		"password":                     true,
		"newpassword":                  true,
		"new_password":                 true,
		"otp":                          true,
		"token":                        true,
		"resettoken":                   true,
		"reset_token":                  true,
		"secret":                       true,
	}

	result := make(map[string]interface{})

	for k, v := range data {
		if sensitiveKeys[strings.ToLower(k)] {
			result[k] = constants.LogRedactedValue
			continue
		}

		if nestedMap, ok := v.(map[string]interface{}); ok {
			result[k] = SanitizeKeys(nestedMap)
			continue
		}

		if nestedMapSlice, ok := v.([]map[string]interface{}); ok {
			sanitizedSlice := make([]map[string]interface{}, len(nestedMapSlice))
			for i, nestedMap := range nestedMapSlice {
				sanitizedSlice[i] = SanitizeKeys(nestedMap)
			}
			result[k] = sanitizedSlice
			continue
		}

		result[k] = v
	}

	return result
}

// TruncateString truncates a string to the given maximum length and adds ellipsis if necessary.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
