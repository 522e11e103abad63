package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils"
)

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						// the server aborts the connection itself
						panic(err)
					}

					stack := debug.Stack()
					requestID := chimiddleware.GetReqID(r.Context())

					// Stack traces may quote request data, so they go through the GDPR logger
					if gdprLogger := utils.GetGDPRLogger(); gdprLogger != nil {
						gdprLogger.Error("Panic recovered in request handler", nil, map[string]interface{}{
							constants.RequestIDContextKey: requestID,
							"method":                      r.Method,
							"path":                        r.URL.Path,
							"remote_addr":                 r.RemoteAddr,
							"panic":                       fmt.Sprintf("%v", err),
							"stack":                       string(stack),
						})
					} else {
						log.Error().
							Str(constants.RequestIDContextKey, requestID).
							Interface("panic", err).
							Str("stack", string(stack)).
							Str("method", r.Method).
							Str("path", r.URL.Path).
							Msg("Panic recovered in request handler")
					}

					utils.Error(
						w,
						http.StatusInternalServerError,
						constants.CodeInternalError,
						constants.MsgUnexpectedPanic,
						nil,
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
