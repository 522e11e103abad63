package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils/gdprlog"
)

// Global GDPR logger instance
var gdprLogger *gdprlog.GDPRLogger

// InitLogger initializes the application logger with the given configuration.
// Every entry written through the global zerolog logger is routed through the
// GDPR logger, which masks personal data and redacts secrets.
func InitLogger(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	gdprLogger = gdprlog.NewGDPRLogger(&cfg.GDPRLogging, logOutput(cfg))
	log.Logger = createGDPRCompatibleLogger(cfg)

	log.Info().Str("sanitization", gdprLogger.Level()).Msg("Logger initialized")
}

// GetGDPRLogger returns the global GDPR logger instance
func GetGDPRLogger() *gdprlog.GDPRLogger {
	return gdprLogger
}

// SetGDPRLogger sets the global GDPR logger instance
func SetGDPRLogger(logger *gdprlog.GDPRLogger) {
	gdprLogger = logger
}

// logOutput selects the sink for log lines
func logOutput(cfg *config.AppConfig) io.Writer {
	if strings.ToLower(cfg.Logging.Format) == "console" && !cfg.App.IsProduction() {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}
	return os.Stdout
}

// createGDPRCompatibleLogger creates a zerolog.Logger that forwards to GDPR logger
func createGDPRCompatibleLogger(cfg *config.AppConfig) zerolog.Logger {
	return zerolog.New(gdprLogHook{}).
		With().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Environment).
		Logger()
}

// gdprLogHook is a writer that forwards logs to GDPR logger
type gdprLogHook struct{}

// Write implements io.Writer to handle log entries
func (h gdprLogHook) Write(p []byte) (n int, err error) {
	if gdprLogger == nil {
		return os.Stdout.Write(p)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(p, &logEntry); err != nil {
		gdprLogger.Error("Failed to parse log entry", err, nil)
		return len(p), nil // Don't return error to prevent breaking the logger
	}

	level, _ := logEntry["level"].(string)
	message, _ := logEntry["message"].(string)
	delete(logEntry, "level")
	delete(logEntry, "message")
	delete(logEntry, "time")

	switch level {
	case "debug":
		gdprLogger.Debug(message, logEntry)
	case "info":
		gdprLogger.Info(message, logEntry)
	case "warn":
		gdprLogger.Warn(message, logEntry)
	case "error":
		var logErr error
		if errMsg, ok := logEntry["error"].(string); ok {
			logErr = errors.New(errMsg)
			delete(logEntry, "error")
		}
		gdprLogger.Error(message, logErr, logEntry)
	case "fatal", "panic":
		gdprLogger.Log(zerolog.FatalLevel, message, logEntry)
	default:
		gdprLogger.Log(zerolog.NoLevel, message, logEntry)
	}

	return len(p), nil
}

// RequestLogger creates a logger with request-specific context
func RequestLogger(requestID, method, path string) zerolog.Logger {
	return log.With().
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path).
		Logger()
}

// LogHTTPRequest logs an HTTP request with request details
func LogHTTPRequest(requestID, method, path, remoteAddr, userAgent string, statusCode int, latency time.Duration) {
	// health probes only show up in debug mode
	if path == constants.HealthPath && zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}

	event := log.Debug()
	switch {
	case statusCode >= 500:
		event = log.Error()
	case statusCode >= 400:
		event = log.Warn()
	case strings.HasPrefix(path, constants.APIBasePath):
		event = log.Info()
	}

	event.
		Str(constants.RequestIDContextKey, requestID).
		Str("method", method).
		Str("path", path).
		Str("remote_addr", remoteAddr).
		Str("user_agent", userAgent).
		Int("status", statusCode).
		Dur("latency", latency).
		Msg("HTTP Request")
}

// LogError logs an error with context information
func LogError(err error, context map[string]interface{}) {
	if gdprLogger != nil {
		gdprLogger.Error("Error occurred", err, context)
		return
	}

	event := log.Error().Err(err)
	for key, value := range context {
		event = event.Interface(key, value)
	}
	event.Msg("Error occurred")
}

// LogPanic logs a recovered panic value
func LogPanic(recovered interface{}, stack []byte) {
	log.Error().
		Interface("panic", recovered).
		Str("stack", string(stack)).
		Msg("Panic recovered")
}

// LogDBQuery logs a database query for debugging.
// Arguments are redacted when the query touches a secret or personal column.
func LogDBQuery(query string, args []interface{}, duration time.Duration, err error) {
	lowerQuery := strings.ToLower(query)
	redact := strings.Contains(lowerQuery, constants.ColumnPasswordHash) ||
		strings.Contains(lowerQuery, constants.ColumnOTPHash) ||
		strings.Contains(lowerQuery, constants.ColumnResetTokenHash) ||
		strings.Contains(lowerQuery, constants.ColumnEmail) ||
		strings.Contains(lowerQuery, constants.ColumnIPAddress)

	safeArgs := make([]interface{}, len(args))
	for i, arg := range args {
		if _, ok := arg.(string); ok && redact {
			safeArgs[i] = constants.LogRedactedValue
		} else {
			safeArgs[i] = arg
		}
	}

	event := log.Debug()
	if err != nil {
		event = log.Error().Err(err)
	}

	event.
		Str("query", query).
		Interface("args", safeArgs).
		Dur("duration", duration).
		Msg("Database query executed")
}

// LogAuth logs password reset and other authentication events.
// The email is masked by the GDPR logger before it is written.
func LogAuth(event string, userID int64, email string, success bool, reason string) {
	logEvent := log.Info()
	if !success {
		logEvent = log.Warn()
	}

	logEvent = logEvent.
		Str("event", event).
		Str(constants.ColumnEmail, email).
		Bool("success", success)

	if userID != 0 {
		logEvent = logEvent.Int64(constants.UserIDContextKey, userID)
	}
	if reason != "" {
		logEvent = logEvent.Str("reason", reason)
	}

	logEvent.Msg(constants.LogCategoryAuth)
}

// LogSecurityEvent logs a security relevant event with arbitrary context
func LogSecurityEvent(event string, fields map[string]interface{}) {
	logEvent := log.Warn().Str("event", event)
	for key, value := range fields {
		logEvent = logEvent.Interface(key, value)
	}
	logEvent.Msg("Security event")
}

// GetLogLevel returns the current global log level as a string
func GetLogLevel() string {
	return zerolog.GlobalLevel().String()
}

// SetLogLevel updates the global log level
func SetLogLevel(level string) error {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %s", level)
	}

	zerolog.SetGlobalLevel(parsedLevel)
	log.Info().Str("level", parsedLevel.String()).Msg("Log level changed")

	return nil
}
