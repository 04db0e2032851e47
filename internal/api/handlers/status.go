package handlers

import (
	"net/http"

	"github.com/wonny/pulse/internal/pipeline"
	"github.com/wonny/pulse/pkg/logger"
)

// StatusHandler serves the pipeline's operational snapshot
type StatusHandler struct {
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
}

// NewStatusHandler creates a status handler
func NewStatusHandler(p *pipeline.Pipeline, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		pipeline: p,
		logger:   log,
	}
}

// GetStatus returns counters from every pipeline stage
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}
