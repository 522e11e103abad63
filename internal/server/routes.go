package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/middleware"
	"github.com/mundocerca/backend/internal/utils"
)

// SetupRoutes configures the routes for the application.
//
// The configured routes include:
// - Health check and version endpoints (unthrottled)
// - The password reset endpoints under /api/auth, behind the edge throttle
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	// Base middleware. RealIP runs before anything that reads the client address.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery())
	if s.Config.Logging.RequestLog {
		r.Use(middleware.RequestLogger())
	}
	r.Use(middleware.SecurityHeaders(s.Config.App.IsProduction()))
	r.Use(middleware.CORS(s.Config.CORS.AllowedOrigins, s.Config.CORS.AllowCredentials))
	r.Use(chimiddleware.NoCache)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	r.Get(constants.HealthPath, s.Handlers.GenericHandler.Health)
	r.Get(constants.VersionPath, s.Handlers.GenericHandler.Version)

	r.Route(constants.APIBasePath, func(r chi.Router) {
		r.Route(constants.AuthRoutePrefix, func(r chi.Router) {
			r.Use(middleware.Throttle(s.security, constants.ThrottleCategoryPasswordReset))

			r.Post(constants.ForgotPasswordPath, s.Handlers.PasswordResetHandler.ForgotPassword)
			r.Post(constants.VerifyOTPPath, s.Handlers.PasswordResetHandler.VerifyOTP)
			r.Post(constants.ResetPasswordPath, s.Handlers.PasswordResetHandler.ResetPassword)
		})
	})

	s.router = r
}
