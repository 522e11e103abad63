package gdprlog

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
)

// LogCategory represents the GDPR classification of a log
type LogCategory int

const (
	// StandardLog contains no personal data
	StandardLog LogCategory = iota
	// PersonalLog contains personal data (emails, addresses, user ids)
	PersonalLog
	// SensitiveLog contains secrets (codes, tokens, hashes, passwords)
	SensitiveLog
)

// String returns the category name attached to sanitized entries
func (c LogCategory) String() string {
	switch c {
	case PersonalLog:
		return "personal"
	case SensitiveLog:
		return "sensitive"
	default:
		return "standard"
	}
}

// personalDataPlaceholder replaces personal data at the high sanitization level.
const personalDataPlaceholder = "[PERSONAL_DATA]"

// GDPRLogger wraps a zerolog logger and sanitizes every field before it is written
type GDPRLogger struct {
	logger zerolog.Logger
	level  string
}

// NewGDPRLogger creates a logger writing sanitized entries to out
func NewGDPRLogger(cfg *config.GDPRLoggingSettings, out io.Writer) *GDPRLogger {
	level := strings.ToLower(cfg.LogSanitizationLevel)
	if level == "" {
		level = constants.DefaultSanitizationLevel
	}

	return &GDPRLogger{
		logger: zerolog.New(out).With().Timestamp().Logger(),
		level:  level,
	}
}

// WithLogger replaces the underlying logger, keeping the sanitization level
func (gl *GDPRLogger) WithLogger(logger zerolog.Logger) *GDPRLogger {
	return &GDPRLogger{logger: logger, level: gl.level}
}

// Level returns the sanitization level in use
func (gl *GDPRLogger) Level() string {
	return gl.level
}

// DetermineLogCategory analyzes log data to determine its GDPR category
func (gl *GDPRLogger) DetermineLogCategory(fields map[string]interface{}) LogCategory {
	for key, value := range fields {
		if IsSensitiveField(key, value) {
			return SensitiveLog
		}
	}

	for key, value := range fields {
		if IsPersonalField(key, value) {
			return PersonalLog
		}
	}

	return StandardLog
}

// SanitizeLogFields removes or masks personal data based on configuration.
// Sensitive fields are redacted at every level, including "none".
func (gl *GDPRLogger) SanitizeLogFields(fields map[string]interface{}) map[string]interface{} {
	sanitizedFields := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if IsSensitiveField(k, v) {
			sanitizedFields[k] = constants.LogRedactedValue
			continue
		}

		// Email addresses are masked at every level, including none.
		if IsEmailField(k, v) && gl.level != constants.SanitizationHigh {
			sanitizedFields[k] = maskEmbeddedEmails(fmt.Sprintf("%v", v))
			continue
		}

		if gl.level == constants.SanitizationNone || gl.level == constants.SanitizationLow || !IsPersonalField(k, v) {
			sanitizedFields[k] = v
			continue
		}

		switch gl.level {
		case constants.SanitizationHigh:
			sanitizedFields[k] = personalDataPlaceholder
		default:
			sanitizedFields[k] = MaskPersonalData(k, v)
		}
	}

	return sanitizedFields
}

// MaskPersonalData applies appropriate masking based on the field type and name
func MaskPersonalData(fieldName string, value interface{}) interface{} {
	lowerName := strings.ToLower(fieldName)
	if matchesFieldName(lowerName, "user_id") {
		return "***"
	}

	switch v := value.(type) {
	case string:
		switch {
		case IsIPField(fieldName):
			return MaskIP(v)
		case IsEmailField(fieldName, v):
			return maskEmbeddedEmails(v)
		case len(v) > 2:
			return string(v[0]) + strings.Repeat("*", len(v)-2) + string(v[len(v)-1])
		}
		return "**"

	case int, int64, float64, float32:
		return "***"

	case bool:
		return v

	case time.Time:
		return v.Format("2006-01-02")
	}

	return "***"
}

// maskEmbeddedEmails masks every address found in s
func maskEmbeddedEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, MaskEmail)
}

// MaskEmail masks an email address, showing only the first 2 and last 2 characters of the username
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return "***@***"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) <= 4 {
		return username[0:1] + "***@" + domain
	}

	return username[0:2] + strings.Repeat("*", len(username)-4) + username[len(username)-2:] + "@" + domain
}

// MaskIP keeps the network part of an address: two octets for IPv4, two groups for IPv6
func MaskIP(addr string) string {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return "***"
	}

	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.*.*", v4[0], v4[1])
	}

	groups := strings.Split(ip.String(), ":")
	if len(groups) < 2 {
		return "***"
	}
	return groups[0] + ":" + groups[1] + ":*"
}

// Log creates a log event with GDPR compliance
func (gl *GDPRLogger) Log(level zerolog.Level, msg string, fields map[string]interface{}) {
	if level < zerolog.GlobalLevel() {
		return
	}

	category := gl.DetermineLogCategory(fields)

	event := gl.logger.WithLevel(level)
	for k, v := range gl.SanitizeLogFields(fields) {
		event = addField(event, k, v)
	}
	if category != StandardLog {
		event = event.Str("gdpr_category", category.String())
	}
	event.Msg(msg)
}

// addField adds a field to a zerolog event with the appropriate type
func addField(event *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int64:
		return event.Int64(key, v)
	case float64:
		return event.Float64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Time:
		return event.Time(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case []string:
		return event.Strs(key, v)
	case error:
		return event.AnErr(key, v)
	default:
		return event.Interface(key, v)
	}
}

// Debug logs at debug level with GDPR compliance
func (gl *GDPRLogger) Debug(msg string, fields map[string]interface{}) {
	gl.Log(zerolog.DebugLevel, msg, fields)
}

// Info logs at info level with GDPR compliance
func (gl *GDPRLogger) Info(msg string, fields map[string]interface{}) {
	gl.Log(zerolog.InfoLevel, msg, fields)
}

// Warn logs at warn level with GDPR compliance
func (gl *GDPRLogger) Warn(msg string, fields map[string]interface{}) {
	gl.Log(zerolog.WarnLevel, msg, fields)
}

// Error logs at error level with GDPR compliance
func (gl *GDPRLogger) Error(msg string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	if err != nil {
		fields["error"] = err.Error()
	}

	gl.Log(zerolog.ErrorLevel, msg, fields)
}
