// Package middleware provides HTTP middleware components.
package middleware

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils"
)

// ThrottleChecker is satisfied by *service.SecurityService
type ThrottleChecker interface {
	Allow(clientID, category string) (bool, time.Duration)
}

// Throttle is middleware that limits the rate of requests from clients.
// It runs before the handler, so a throttled request never reaches the reset flow.
//
// Parameters:
//   - checker: The token bucket store keyed by client address
//   - category: The endpoint category to apply limits for
//
// Returns:
//   - A middleware function that can be used with an HTTP handler
func Throttle(checker ThrottleChecker, category string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := utils.ClientIP(r)

			allowed, wait := checker.Allow(clientIP, category)
			if !allowed {
				log.Warn().
					Str("client_ip", clientIP).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("category", category).
					Msg("Rate limit exceeded")

				utils.TooManyRequests(w, retryAfterSeconds(wait))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds converts a limiter wait into a whole-second header value
func retryAfterSeconds(wait time.Duration) int {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < constants.DefaultThrottleRetryAfter {
		return constants.DefaultThrottleRetryAfter
	}
	return seconds
}

// SecurityHeaders adds security-related HTTP headers to responses
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(constants.HeaderXContentTypeOptions, constants.ContentTypeOptionsNoSniff)
			w.Header().Set(constants.HeaderXFrameOptions, constants.FrameOptionsDeny)
			w.Header().Set(constants.HeaderReferrerPolicy, constants.ReferrerPolicyNoReferrer)
			w.Header().Set(constants.HeaderContentSecurityPolicy, constants.CSPDefaultSrc)
			if hsts {
				w.Header().Set(constants.HeaderStrictTransport, constants.StrictTransportMaxAge)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflight requests and tags responses for the allowed origins.
// A "*" entry allows any origin; the request origin is echoed back either way.
func CORS(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(constants.HeaderOrigin)
			if origin == "" || !originAllowed(allowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", constants.HeaderOrigin)
			w.Header().Set(constants.HeaderAllowOrigin, origin)
			if allowCredentials {
				w.Header().Set(constants.HeaderAllowCredentials, "true")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(constants.HeaderAllowMethods, constants.CORSAllowedMethods)
			w.Header().Set(constants.HeaderAllowHeaders, constants.CORSAllowedHeaders)
			w.Header().Set(constants.HeaderMaxAge, constants.CORSMaxAgeSeconds)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == constants.CORSWildcardOrigin || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// isExemptedPath returns true if the path should be exempted from throttling
func isExemptedPath(path string) bool {
	exemptPrefixes := []string{
		constants.HealthPath,
		constants.VersionPath,
		"/favicon.ico",
	}

	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
