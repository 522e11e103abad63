// Package constants provides shared constant values used throughout the application.
//
// The httpcodes.go file defines HTTP-related constants such as routes, headers
// and content types. The security header values are applied to every response.
package constants

// Routes
const (
	// APIBasePath is the root path prefix for all API endpoints.
	APIBasePath = "/api"

	// HealthPath is the endpoint for health checks.
	HealthPath = "/health"

	// VersionPath reports the running build.
	VersionPath = "/version"

	// AuthRoutePrefix groups the authentication endpoints under the API base path.
	AuthRoutePrefix = "/auth"

	ForgotPasswordPath = "/forgot-password"
	VerifyOTPPath      = "/verify-otp"
	ResetPasswordPath  = "/reset-password"
)

// HTTP Headers
const (
	HeaderContentType           = "Content-Type"
	HeaderRetryAfter            = "Retry-After"
	HeaderCacheControl          = "Cache-Control"
	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
	HeaderStrictTransport       = "Strict-Transport-Security"
	HeaderOrigin                = "Origin"
	HeaderAllowOrigin           = "Access-Control-Allow-Origin"
	HeaderAllowMethods          = "Access-Control-Allow-Methods"
	HeaderAllowHeaders          = "Access-Control-Allow-Headers"
	HeaderAllowCredentials      = "Access-Control-Allow-Credentials"
	HeaderMaxAge                = "Access-Control-Max-Age"
)

// Header Values
const (
	ContentTypeJSON            = "application/json"
	CacheControlNoStore        = "no-store"
	ContentTypeOptionsNoSniff  = "nosniff"
	FrameOptionsDeny           = "DENY"
	ReferrerPolicyNoReferrer   = "no-referrer"
	CSPDefaultSrc              = "default-src 'none'; frame-ancestors 'none'"
	StrictTransportMaxAge      = "max-age=31536000; includeSubDomains"
	CORSAllowedMethods         = "GET, POST, OPTIONS"
	CORSAllowedHeaders         = "Accept, Content-Type, X-Request-ID"
	CORSMaxAgeSeconds          = "300"
	CORSWildcardOrigin         = "*"
	RequestIDContextKey        = "request_id"
	UserIDContextKey           = "user_id"
	DefaultRetryAfterSeconds   = "60"
	ForwardedForHeader         = "X-Forwarded-For"
	RealIPHeader               = "X-Real-IP"
	UnknownClientIP            = "unknown"
	DefaultThrottleRetryAfter  = 1
	DefaultHealthStatusHealthy = "healthy"
)
