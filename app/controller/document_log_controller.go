package controller

import (
	"net/http"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/repository"
)

// DocumentLogController lists the document audit log
type DocumentLogController struct {
	repository repository.DocumentLogRepositoryInterface
	log        *logger.Logger
}

// NewDocumentLogController creates a new DocumentLogController
func NewDocumentLogController(repo repository.DocumentLogRepositoryInterface, log *logger.Logger) *DocumentLogController {
	return &DocumentLogController{repository: repo, log: log.With("component", "DocumentLogController")}
}

// List handles GET /document-log
func (c *DocumentLogController) List(w http.ResponseWriter, r *http.Request) {
	logs, err := c.repository.List(r.Context())
	if err != nil {
		c.log.Error("❌ Error listing document log", "error", err)
		respondError(w, c.log, http.StatusInternalServerError, "failed to list document log")
		return
	}
	respondJSON(w, c.log, http.StatusOK, models.DocumentLogListResponse{Logs: logs})
}
