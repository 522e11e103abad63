// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the application.
// These constants provide fallbacks for configuration settings and define the
// parameters of the password reset flow. Changes to these values directly change
// how much abuse the reset endpoints tolerate.
package constants

import "time"

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default number of idle database connections kept open.
	DefaultDBMinConnections = 5

	// DefaultDBDriver is the database driver used when none is configured.
	DefaultDBDriver = DriverPostgres

	// DefaultSQLitePath is the database file used by the sqlite3 driver when no path is configured.
	DefaultSQLitePath = "./data/mundocerca.db"

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"

	// DefaultAppName is the application name attached to every log line.
	DefaultAppName = "mundocerca-api"

	// DefaultAppVersion is used when the build does not inject a version.
	DefaultAppVersion = "1.0.0"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with debugging features enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with optimized settings.
	EnvProduction = "production"
)

// MaxRequestBodySize is the maximum size in bytes for HTTP request bodies.
const MaxRequestBodySize = 1048576 // 1MB in bytes

// Default Password Hash Settings define the parameters for secret hashing.
const (
	// HashAlgorithmArgon2id selects the Argon2id secret hasher.
	HashAlgorithmArgon2id = "argon2id"

	// HashAlgorithmBcrypt selects the bcrypt secret hasher.
	HashAlgorithmBcrypt = "bcrypt"

	// DefaultHashAlgorithm is the hasher used when none is configured.
	DefaultHashAlgorithm = HashAlgorithmArgon2id

	// DefaultPasswordHashMemory is the memory cost parameter for Argon2id hashing, in KiB.
	DefaultPasswordHashMemory = 64 * 1024

	// DefaultPasswordHashIterations is the number of iterations for Argon2id hashing.
	DefaultPasswordHashIterations = 3

	// DefaultPasswordHashParallelism is the parallelism parameter for Argon2id hashing.
	DefaultPasswordHashParallelism = 2

	// DefaultPasswordHashSaltLength is the length in bytes of the random salt.
	DefaultPasswordHashSaltLength = 16

	// DefaultPasswordHashKeyLength is the length in bytes of the generated hash.
	DefaultPasswordHashKeyLength = 32

	// DevPasswordHashMemory is a reduced memory setting for development environments.
	DevPasswordHashMemory = 16 * 1024

	// DevPasswordHashIterations is a reduced iteration count for development environments.
	DevPasswordHashIterations = 1

	// DefaultBcryptCost is the bcrypt work factor used when bcrypt is selected.
	DefaultBcryptCost = 12
)

// Password Reset Defaults define the limits of the three-step reset flow.
const (
	// DefaultOTPLength is the number of digits in a reset code.
	DefaultOTPLength = 6

	// DefaultOTPTTLMinutes is how long a reset code stays valid.
	DefaultOTPTTLMinutes = 10

	// DefaultResetTokenTTLMinutes is how long a reset token stays valid after code verification.
	DefaultResetTokenTTLMinutes = 5

	// DefaultResendCooldownSeconds is the minimum spacing between two requests for one email.
	DefaultResendCooldownSeconds = 60

	// DefaultMaxVerifyAttempts is the number of wrong codes tolerated before lockout.
	DefaultMaxVerifyAttempts = 5

	// DefaultMaxRequestsPerEmailPerHour caps reset requests per email in a trailing hour.
	DefaultMaxRequestsPerEmailPerHour = 3

	// DefaultMaxRequestsPerIPPerHour caps reset requests per client address in a trailing hour.
	DefaultMaxRequestsPerIPPerHour = 10

	// DefaultMinResponseTime is the floor every forgot-password response is padded to.
	DefaultMinResponseTime = 400 * time.Millisecond

	// DefaultResponseJitter is the upper bound of random delay added on top of the floor.
	DefaultResponseJitter = 100 * time.Millisecond

	// DefaultResetRecordRetention is how long finished reset records are kept before the reaper deletes them.
	DefaultResetRecordRetention = 24 * time.Hour

	// RateLimitWindow is the trailing window of the hourly request caps.
	RateLimitWindow = time.Hour

	// ResetTokenBytes is the entropy of a reset token before hex encoding.
	ResetTokenBytes = 32

	// MinPasswordLength is the shortest new password accepted by finalization.
	MinPasswordLength = 8

	// MaxPasswordLength bounds the work done by the hasher on hostile input.
	MaxPasswordLength = 128
)

// Default Edge Throttle Settings define the in-memory token bucket in front of the reset endpoints.
const (
	// DefaultThrottleRequestsPerSecond is the refill rate per client address.
	DefaultThrottleRequestsPerSecond = 1.0

	// DefaultThrottleBurst is the bucket capacity per client address.
	DefaultThrottleBurst = 5

	// ThrottleCategoryPasswordReset names the limiter category used by the reset routes.
	ThrottleCategoryPasswordReset = "password_reset"

	// MaxTrackedClients is the number of client limiters kept before idle ones are evicted.
	MaxTrackedClients = 10000
)

// Email Defaults define the outbound mail channel.
const (
	// EmailProviderLog writes messages to the log instead of delivering them.
	EmailProviderLog = "log"

	// EmailProviderSMTP delivers messages through an SMTP relay.
	EmailProviderSMTP = "smtp"

	// EmailProviderSendGrid delivers messages through the SendGrid v3 API.
	EmailProviderSendGrid = "sendgrid"

	// DefaultEmailProvider is used when none is configured.
	DefaultEmailProvider = EmailProviderLog

	// DefaultFromAddress is the sender address of reset emails.
	DefaultFromAddress = "no-reply@mundocerca.com"

	// DefaultFromName is the sender display name of reset emails.
	DefaultFromName = "MundoCerca"

	// DefaultSMTPPort is the submission port used when none is configured.
	DefaultSMTPPort = 587

	// SendGridHost is the SendGrid API base URL.
	SendGridHost = "https://api.sendgrid.com"

	// SendGridMailSendPath is the SendGrid v3 mail send endpoint.
	SendGridMailSendPath = "/v3/mail/send"
)

// Log Sanitization Levels define how much personal data reaches the standard log stream.
const (
	SanitizationNone   = "none"
	SanitizationLow    = "low"
	SanitizationMedium = "medium"
	SanitizationHigh   = "high"

	// DefaultSanitizationLevel masks personal data but keeps it recognizable.
	DefaultSanitizationLevel = SanitizationMedium
)
