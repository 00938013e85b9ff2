package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// Pagination bounds for GET /results/{file_id}.
const (
	DefaultResultsLimit = 100
	MaxResultsLimit     = 1000
)

// ResultsHandler pages through a file's processed records.
type ResultsHandler struct {
	store store.Store
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(st store.Store) *ResultsHandler {
	return &ResultsHandler{store: st}
}

// ResultItem is one processed record in a results page.
type ResultItem struct {
	ID         uint64          `json:"id"`
	ChunkIndex int             `json:"chunk_index"`
	Data       json.RawMessage `json:"data"`
}

// ResultsResponse is the response body for GET /results/{file_id}.
type ResultsResponse struct {
	FileID  string       `json:"file_id"`
	Results []ResultItem `json:"results"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// List handles GET /results/{file_id}?limit=&offset=.
//
// Pages are ordered by (chunk_index, id), which is the order rows appear
// in the source file, so walking the offsets replays the upload. Results
// accumulate while the file is still processing; Total reflects what has
// been committed so far.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	limit, offset, err := parsePagination(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	// Existence check first so an unknown file is a 404, not an empty page.
	if _, err := h.store.GetFile(r.Context(), fileID); err != nil {
		if errors.Is(err, models.ErrFileNotFound) {
			NotFound(w, fmt.Sprintf("no file with ID %q", fileID))
			return
		}
		logger.Error("Failed to load file for results",
			logger.FileID(fileID),
			logger.Err(err))
		InternalServerError(w, "Failed to load results")
		return
	}

	records, total, err := h.store.ListRecords(r.Context(), fileID, limit, offset)
	if err != nil {
		logger.Error("Failed to list records",
			logger.FileID(fileID),
			logger.Limit(limit),
			logger.Err(err))
		InternalServerError(w, "Failed to load results")
		return
	}

	results := make([]ResultItem, len(records))
	for i, rec := range records {
		results[i] = ResultItem{
			ID:         rec.ID,
			ChunkIndex: rec.ChunkIndex,
			Data:       rec.RawData(),
		}
	}

	WriteJSONOK(w, ResultsResponse{
		FileID:  fileID,
		Results: results,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// parsePagination reads limit and offset from the query string. The limit
// is silently capped at MaxResultsLimit; anything non-numeric or negative
// is the caller's mistake and rejected.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit = DefaultResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("limit must be a positive integer")
		}
		if limit > MaxResultsLimit {
			limit = MaxResultsLimit
		}
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}

	return limit, offset, nil
}
