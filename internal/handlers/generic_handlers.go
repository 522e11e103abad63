package handlers

import (
	"net/http"

	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/utils"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// VersionResponse is the body of GET /version
type VersionResponse struct {
	OK          bool   `json:"ok"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// GenericHandler serves the operational endpoints
type GenericHandler struct {
	dbService   DatabaseServiceInterface
	name        string
	version     string
	environment string
}

// NewGenericHandler creates a new GenericHandler
func NewGenericHandler(dbService DatabaseServiceInterface, name, version, environment string) *GenericHandler {
	return &GenericHandler{
		dbService:   dbService,
		name:        name,
		version:     version,
		environment: environment,
	}
}

// Health reports whether the database answers.
//
// Responses:
//   - 200 OK: database reachable
//   - 503 Service Unavailable: database ping or probe query failed
func (h *GenericHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.dbService.CheckHealth(r.Context()); err != nil {
		utils.ServiceUnavailable(w, constants.MsgServiceUnhealthy)
		return
	}

	utils.JSON(w, http.StatusOK, HealthResponse{
		OK:       true,
		Status:   "healthy",
		Version:  h.version,
		Database: h.dbService.Driver(),
	})
}

// Version reports the running build
func (h *GenericHandler) Version(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, VersionResponse{
		OK:          true,
		Name:        h.name,
		Version:     h.version,
		Environment: h.environment,
	})
}
