package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mundocerca/backend/internal/constants"
)

// AppConfig represents the entire application configuration
type AppConfig struct {
	App           AppSettings           `yaml:"app"`
	Database      DatabaseSettings      `yaml:"database"`
	Server        ServerSettings        `yaml:"server"`
	Logging       LoggingSettings       `yaml:"logging"`
	CORS          CORSSettings          `yaml:"cors"`
	PasswordHash  HashSettings          `yaml:"password_hash"`
	PasswordReset PasswordResetSettings `yaml:"password_reset"`
	Email         EmailSettings         `yaml:"email"`
	GDPRLogging   GDPRLoggingSettings   `yaml:"gdpr_logging"`
	Throttle      ThrottleSettings      `yaml:"throttle"`
}

// GDPRLoggingSettings controls how personal data is masked before it reaches the log stream
type GDPRLoggingSettings struct {
	LogSanitizationLevel string `yaml:"log_sanitization_level" env:"GDPR_SANITIZATION_LEVEL"`
}

// AppSettings contains general application settings
type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

// DatabaseSettings contains database connection settings.
// DSN, when set, is passed to the driver untouched and wins over the discrete fields.
type DatabaseSettings struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	DSN      string `yaml:"dsn" env:"DATABASE_URL"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	Path     string `yaml:"path" env:"DB_PATH"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	RequestLog bool   `yaml:"request_log" env:"LOG_REQUESTS"`
}

// CORSSettings contains CORS configuration
type CORSSettings struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
}

// HashSettings contains secret hashing settings shared by codes, tokens and passwords
type HashSettings struct {
	Algorithm   string `yaml:"algorithm" env:"HASH_ALGORITHM"`
	Memory      uint32 `yaml:"memory" env:"HASH_MEMORY"`
	Iterations  uint32 `yaml:"iterations" env:"HASH_ITERATIONS"`
	Parallelism uint8  `yaml:"parallelism" env:"HASH_PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"HASH_SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"HASH_KEY_LENGTH"`
	BcryptCost  int    `yaml:"bcrypt_cost" env:"HASH_BCRYPT_COST"`
}

// PasswordResetSettings contains the limits of the password reset flow
type PasswordResetSettings struct {
	OTPLength          int           `yaml:"otp_length" env:"PASSWORD_RESET_OTP_LENGTH"`
	OTPTTLMinutes      int           `yaml:"otp_ttl_minutes" env:"PASSWORD_RESET_OTP_TTL_MINUTES"`
	TokenTTLMinutes    int           `yaml:"token_ttl_minutes" env:"PASSWORD_RESET_TOKEN_TTL_MINUTES"`
	CooldownSeconds    int           `yaml:"cooldown_seconds" env:"PASSWORD_RESET_COOLDOWN_SECONDS"`
	MaxAttempts        int           `yaml:"max_attempts" env:"PASSWORD_RESET_MAX_ATTEMPTS"`
	MaxPerEmailPerHour int           `yaml:"max_per_email_hour" env:"PASSWORD_RESET_MAX_PER_EMAIL_HOUR"`
	MaxPerIPPerHour    int           `yaml:"max_per_ip_hour" env:"PASSWORD_RESET_MAX_PER_IP_HOUR"`
	MinResponseTime    time.Duration `yaml:"min_response_time" env:"PASSWORD_RESET_MIN_RESPONSE_TIME"`
	ResponseJitter     time.Duration `yaml:"response_jitter" env:"PASSWORD_RESET_RESPONSE_JITTER"`
	Retention          time.Duration `yaml:"retention" env:"PASSWORD_RESET_RETENTION"`
}

// OTPTTL returns the reset code validity window
func (p *PasswordResetSettings) OTPTTL() time.Duration {
	return time.Duration(p.OTPTTLMinutes) * time.Minute
}

// TokenTTL returns the reset token validity window
func (p *PasswordResetSettings) TokenTTL() time.Duration {
	return time.Duration(p.TokenTTLMinutes) * time.Minute
}

// Cooldown returns the minimum spacing between two requests for one email
func (p *PasswordResetSettings) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

// EmailSettings contains the outbound mail channel configuration
type EmailSettings struct {
	Provider       string        `yaml:"provider" env:"EMAIL_PROVIDER"`
	FromAddress    string        `yaml:"from_address" env:"EMAIL_FROM_ADDRESS"`
	FromName       string        `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	SendTimeout    time.Duration `yaml:"send_timeout" env:"EMAIL_SEND_TIMEOUT"`
	SendGridAPIKey string        `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	SendGridHost   string        `yaml:"sendgrid_host" env:"SENDGRID_HOST"`
	SMTPHost       string        `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort       int           `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUsername   string        `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword   string        `yaml:"smtp_password" env:"SMTP_PASSWORD"`
}

// ThrottleSettings contains the per-client token bucket in front of the reset endpoints
type ThrottleSettings struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"THROTTLE_REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" env:"THROTTLE_BURST"`
}

// ConnectionString returns the driver-specific data source name
func (dbs *DatabaseSettings) ConnectionString() string {
	if dbs.DSN != "" {
		return dbs.DSN
	}

	switch dbs.Driver {
	case constants.DriverMySQL:
		// MariaDB/MySQL connection string format: username:password@tcp(host:port)/dbname
		password := dbs.Password
		if password != "" {
			password = ":" + password
		}
		return fmt.Sprintf(
			"%s%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
			dbs.User, password, dbs.Host, dbs.Port, dbs.Name,
		)
	case constants.DriverSQLite:
		// WAL mode so reads and writes don't block each other, plus a busy timeout.
		return dbs.Path + "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	default:
		sslMode := dbs.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbs.Host, dbs.Port, dbs.User, dbs.Password, dbs.Name, sslMode,
		)
	}
}

// ServerAddress returns the complete server address
func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

// IsDevelopment checks if the application is running in development mode
func (as *AppSettings) IsDevelopment() bool {
	return strings.ToLower(as.Environment) == constants.EnvDevelopment
}

// IsProduction checks if the application is running in production mode
func (as *AppSettings) IsProduction() bool {
	return strings.ToLower(as.Environment) == constants.EnvProduction
}

// IsTesting checks if the application is running in testing mode
func (as *AppSettings) IsTesting() bool {
	return strings.ToLower(as.Environment) == constants.EnvTesting
}

// Load loads the configuration from a config file and environment variables
func Load(configPath string) (*AppConfig, error) {
	config := &AppConfig{}

	// Load configuration from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Override with environment variables
	if err := LoadEnv(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig(config)

	return config, nil
}

// setDefaults sets default values for any missing configuration
func setDefaults(config *AppConfig) {
	if config.App.Environment == "" {
		config.App.Environment = constants.EnvDevelopment
	}
	if config.App.Name == "" {
		config.App.Name = constants.DefaultAppName
	}
	if config.App.Version == "" {
		config.App.Version = constants.DefaultAppVersion
	}

	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	if config.Database.Driver == "" {
		config.Database.Driver = constants.DefaultDBDriver
	}
	config.Database.Driver = strings.ToLower(config.Database.Driver)
	if config.Database.Driver == constants.DriverSQLite && config.Database.Path == "" {
		config.Database.Path = constants.DefaultSQLitePath
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = constants.DefaultDBMaxConnections
	}
	if config.Database.MinConns == 0 {
		config.Database.MinConns = constants.DefaultDBMinConnections
	}

	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = constants.DefaultLogFormat
	}

	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{constants.CORSWildcardOrigin}
	}

	setHashDefaults(config)
	setPasswordResetDefaults(&config.PasswordReset)

	if config.Email.Provider == "" {
		config.Email.Provider = constants.DefaultEmailProvider
	}
	config.Email.Provider = strings.ToLower(config.Email.Provider)
	if config.Email.FromAddress == "" {
		config.Email.FromAddress = constants.DefaultFromAddress
	}
	if config.Email.FromName == "" {
		config.Email.FromName = constants.DefaultFromName
	}
	if config.Email.SendTimeout == 0 {
		config.Email.SendTimeout = constants.DefaultEmailSendTimeout
	}
	if config.Email.SendGridHost == "" {
		config.Email.SendGridHost = constants.SendGridHost
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = constants.DefaultSMTPPort
	}

	if config.GDPRLogging.LogSanitizationLevel == "" {
		config.GDPRLogging.LogSanitizationLevel = constants.DefaultSanitizationLevel
	}

	if config.Throttle.RequestsPerSecond == 0 {
		config.Throttle.RequestsPerSecond = constants.DefaultThrottleRequestsPerSecond
	}
	if config.Throttle.Burst == 0 {
		config.Throttle.Burst = constants.DefaultThrottleBurst
	}
}

func setHashDefaults(config *AppConfig) {
	hash := &config.PasswordHash
	if hash.Algorithm == "" {
		hash.Algorithm = constants.DefaultHashAlgorithm
	}
	hash.Algorithm = strings.ToLower(hash.Algorithm)

	// Lower cost for development, full cost for production
	if hash.Memory == 0 {
		if config.App.IsProduction() {
			hash.Memory = constants.DefaultPasswordHashMemory
		} else {
			hash.Memory = constants.DevPasswordHashMemory
		}
	}
	if hash.Iterations == 0 {
		if config.App.IsProduction() {
			hash.Iterations = constants.DefaultPasswordHashIterations
		} else {
			hash.Iterations = constants.DevPasswordHashIterations
		}
	}
	if hash.Parallelism == 0 {
		hash.Parallelism = constants.DefaultPasswordHashParallelism
	}
	if hash.SaltLength == 0 {
		hash.SaltLength = constants.DefaultPasswordHashSaltLength
	}
	if hash.KeyLength == 0 {
		hash.KeyLength = constants.DefaultPasswordHashKeyLength
	}
	if hash.BcryptCost == 0 {
		hash.BcryptCost = constants.DefaultBcryptCost
	}
}

func setPasswordResetDefaults(p *PasswordResetSettings) {
	if p.OTPLength == 0 {
		p.OTPLength = constants.DefaultOTPLength
	}
	if p.OTPTTLMinutes == 0 {
		p.OTPTTLMinutes = constants.DefaultOTPTTLMinutes
	}
	if p.TokenTTLMinutes == 0 {
		p.TokenTTLMinutes = constants.DefaultResetTokenTTLMinutes
	}
	if p.CooldownSeconds == 0 {
		p.CooldownSeconds = constants.DefaultResendCooldownSeconds
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = constants.DefaultMaxVerifyAttempts
	}
	if p.MaxPerEmailPerHour == 0 {
		p.MaxPerEmailPerHour = constants.DefaultMaxRequestsPerEmailPerHour
	}
	if p.MaxPerIPPerHour == 0 {
		p.MaxPerIPPerHour = constants.DefaultMaxRequestsPerIPPerHour
	}
	if p.MinResponseTime == 0 {
		p.MinResponseTime = constants.DefaultMinResponseTime
	}
	if p.ResponseJitter == 0 {
		p.ResponseJitter = constants.DefaultResponseJitter
	}
	if p.Retention == 0 {
		p.Retention = constants.DefaultResetRecordRetention
	}
}

// validateConfig validates that the configuration has all required values
func validateConfig(config *AppConfig) error {
	env := strings.ToLower(config.App.Environment)
	if env != constants.EnvDevelopment && env != constants.EnvTesting && env != constants.EnvProduction {
		log.Warn().Str("environment", config.App.Environment).Msg("Invalid environment, defaulting to development")
		config.App.Environment = constants.EnvDevelopment
	}

	switch config.Database.Driver {
	case constants.DriverPostgres, constants.DriverPgx, constants.DriverMySQL:
		if config.Database.DSN == "" && config.Database.User == "" {
			return fmt.Errorf("database user must be set for driver %s", config.Database.Driver)
		}
	case constants.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}

	switch config.PasswordHash.Algorithm {
	case constants.HashAlgorithmArgon2id, constants.HashAlgorithmBcrypt:
	default:
		return fmt.Errorf("unsupported hash algorithm: %s", config.PasswordHash.Algorithm)
	}

	if err := validatePasswordReset(&config.PasswordReset); err != nil {
		return err
	}

	switch config.Email.Provider {
	case constants.EmailProviderLog:
		if config.App.IsProduction() {
			log.Warn().Msg("Email provider 'log' in production: reset codes will not be delivered")
		}
	case constants.EmailProviderSMTP:
		if config.Email.SMTPHost == "" {
			return fmt.Errorf("smtp host must be set for the smtp email provider")
		}
	case constants.EmailProviderSendGrid:
		if config.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key must be set for the sendgrid email provider")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", config.Email.Provider)
	}

	logLevel := strings.ToLower(config.Logging.Level)
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLevels {
		if logLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func validatePasswordReset(p *PasswordResetSettings) error {
	if p.OTPLength < 4 || p.OTPLength > 10 {
		return fmt.Errorf("password reset otp length must be between 4 and 10, got %d", p.OTPLength)
	}
	if p.OTPTTLMinutes < 0 || p.TokenTTLMinutes < 0 || p.CooldownSeconds < 0 {
		return fmt.Errorf("password reset durations must not be negative")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("password reset max attempts must be at least 1")
	}
	if p.MaxPerEmailPerHour < 1 || p.MaxPerIPPerHour < 1 {
		return fmt.Errorf("password reset hourly caps must be at least 1")
	}
	return nil
}

// logConfig logs the current configuration, leaving out secrets
func logConfig(config *AppConfig) {
	log.Info().
		Str("environment", config.App.Environment).
		Str("version", config.App.Version).
		Str("server", config.Server.ServerAddress()).
		Str("db_driver", config.Database.Driver).
		Str("db_host", config.Database.Host).
		Int("db_port", config.Database.Port).
		Str("db_name", config.Database.Name).
		Str("hash_algorithm", config.PasswordHash.Algorithm).
		Str("email_provider", config.Email.Provider).
		Int("otp_ttl_minutes", config.PasswordReset.OTPTTLMinutes).
		Int("cooldown_seconds", config.PasswordReset.CooldownSeconds).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")
}
