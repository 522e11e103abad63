// Package gdprlog provides GDPR-compliant logging functionalities.
//
// This package classifies log fields as standard, personal or sensitive and
// sanitizes them before they reach the log stream. Reset codes, reset tokens,
// hashes and passwords are always redacted. Email and IP addresses are masked
// according to the configured sanitization level.
package gdprlog

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// emailPattern matches email address formats for detection in free-form values.
	emailPattern = regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// creditCardPattern matches common card number formats with optional separators.
	creditCardPattern = regexp.MustCompile(`(?:\d[ -]*?){13,19}`)

	// secretNamePattern detects credential-like field names.
	secretNamePattern = regexp.MustCompile(`(?i)passw(or)?d|pwd|token|secret|otp|credential|bearer|authorization`)
)

// SensitiveFieldNames lists name fragments whose values are always redacted.
var SensitiveFieldNames = []string{
	"password", "token", "secret", "otp", "hash", "salt",
	"api_key", "credit_card", "card_number", "cvv",
}

// PersonalFieldNames lists field names that identify a person.
// A field matches when its name equals an entry or carries it as a
// '_'-separated prefix or suffix, so "ip" matches "client_ip" but not "zip".
var PersonalFieldNames = []string{
	"user_id", "email", "ip", "ip_address", "remote_addr",
	"phone", "name", "full_name", "address", "user_agent",
}

// IsSensitiveField checks if a field appears to contain secret material.
// It examines the field name, and string values for card numbers.
func IsSensitiveField(fieldName string, value interface{}) bool {
	lowerName := strings.ToLower(fieldName)
	for _, name := range SensitiveFieldNames {
		if strings.Contains(lowerName, name) {
			return true
		}
	}

	if lowerName != "" && secretNamePattern.MatchString(lowerName) {
		return true
	}

	if strValue, ok := value.(string); ok && len(strValue) >= 13 {
		if creditCardPattern.MatchString(strValue) {
			cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strValue)
			if len(cleaned) >= 13 && len(cleaned) <= 19 && couldBeCreditCard(cleaned) {
				return true
			}
		}
	}

	return false
}

// IsPersonalField checks if a field and its value appears to contain personal data.
func IsPersonalField(fieldName string, value interface{}) bool {
	lowerName := strings.ToLower(fieldName)
	for _, name := range PersonalFieldNames {
		if matchesFieldName(lowerName, name) {
			return true
		}
	}

	if strValue, ok := value.(string); ok {
		return emailPattern.MatchString(strValue)
	}

	return false
}

// IsEmailField checks if a field name or value appears to be an email address.
func IsEmailField(fieldName string, value interface{}) bool {
	if matchesFieldName(strings.ToLower(fieldName), "email") {
		return true
	}

	if strValue, ok := value.(string); ok {
		return emailPattern.MatchString(strValue)
	}

	return false
}

// IsIPField checks if a field name denotes a client address.
func IsIPField(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	return matchesFieldName(lowerName, "ip") ||
		matchesFieldName(lowerName, "ip_address") ||
		matchesFieldName(lowerName, "remote_addr")
}

func matchesFieldName(lowerName, name string) bool {
	return lowerName == name ||
		strings.HasPrefix(lowerName, name+"_") ||
		strings.HasSuffix(lowerName, "_"+name)
}

// couldBeCreditCard runs the Luhn check to reduce false positives.
func couldBeCreditCard(number string) bool {
	sum := 0
	alternate := false

	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}

		n := int(number[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}

		sum += n
		alternate = !alternate
	}

	return sum%10 == 0
}

// ContainsPersonalData checks a free-form string for an embedded email address.
func ContainsPersonalData(s string) bool {
	if len(s) < 5 {
		return false
	}
	return emailPattern.MatchString(s)
}

// ToSafeString converts a value to a string safely for logging purposes.
func ToSafeString(value interface{}) string {
	if value == nil {
		return "nil"
	}

	return fmt.Sprintf("%v", value)
}
