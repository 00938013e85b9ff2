package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// StatusHandler reports per-file ingestion progress.
type StatusHandler struct {
	store store.Store
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(st store.Store) *StatusHandler {
	return &StatusHandler{store: st}
}

// StatusResponse is the response body for GET /status/{file_id}.
type StatusResponse struct {
	FileID          string  `json:"file_id"`
	Filename        string  `json:"filename"`
	Status          string  `json:"status"`
	TotalChunks     int     `json:"total_chunks"`
	ProcessedChunks int     `json:"processed_chunks"`
	FailedChunks    int     `json:"failed_chunks"`
	ProgressPercent float64 `json:"progress_percent"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

// Get handles GET /status/{file_id}.
//
// Progress counts both completed and permanently failed chunks, so a file
// that finishes with errors still reaches 100%. Before planning completes
// the totals are zero and progress reports 0.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	file, err := h.store.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, models.ErrFileNotFound) {
			NotFound(w, fmt.Sprintf("no file with ID %q", fileID))
			return
		}
		logger.Error("Failed to load file status",
			logger.FileID(fileID),
			logger.Err(err))
		InternalServerError(w, "Failed to load file status")
		return
	}

	WriteJSONOK(w, StatusResponse{
		FileID:          file.ID,
		Filename:        file.Filename,
		Status:          string(file.Status),
		TotalChunks:     file.TotalChunks,
		ProcessedChunks: file.ProcessedChunks,
		FailedChunks:    file.FailedChunks,
		ProgressPercent: file.Progress(),
		ErrorMessage:    file.Error,
	})
}
