package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/csvutil"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// multipartMemory is the in-memory buffer for multipart parsing; parts
// beyond it spill to temp files.
const multipartMemory = 32 << 20

// Enqueuer schedules an admitted file for planning and execution.
// Satisfied by *ingest.Manager.
type Enqueuer interface {
	Enqueue(ctx context.Context, fileID string) error
}

// UploadLimits are the admission limits enforced before anything is
// persisted.
type UploadLimits struct {
	// MaxBytes is the largest accepted payload size.
	MaxBytes int64

	// AllowedTypes lists the accepted MIME types. Matching ignores
	// parameters and case.
	AllowedTypes []string
}

// UploadHandler admits CSV uploads into the pipeline.
//
// Admission runs entirely before any state is created: the payload size,
// the content type (declared or sniffed) and the CSV structure are all
// checked first, so a rejected upload leaves no file row and no blob
// behind. Only then is the payload saved, the file row created, and the
// file handed to the ingestion manager.
type UploadHandler struct {
	store   store.Store
	blobs   blob.Store
	ingest  Enqueuer
	limits  UploadLimits
	metrics Metrics
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(st store.Store, blobs blob.Store, ingest Enqueuer, limits UploadLimits, m Metrics) *UploadHandler {
	return &UploadHandler{
		store:   st,
		blobs:   blobs,
		ingest:  ingest,
		limits:  limits,
		metrics: m,
	}
}

// UploadResponse is the response body for POST /upload.
type UploadResponse struct {
	FileID string `json:"file_id"`
}

// Upload handles POST /upload.
//
// The payload arrives as the multipart form field "file". An optional
// "priority" query parameter raises the file above others in the queue.
// On success the payload is durably stored, a file row exists in status
// queued, and planning has been kicked off; the response is 201 with the
// file ID to poll.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanUploadRequest)
	defer span.End()

	// Reject oversized requests from the declared length before reading
	// the body; MaxBytesReader below catches clients that lie about it.
	if r.ContentLength > h.limits.MaxBytes {
		h.reject(w, RejectSize, h.sizeMessage())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes)

	priority := models.MinPriority
	if raw := r.URL.Query().Get("priority"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || !models.ValidPriority(p) {
			h.reject(w, RejectPriority, fmt.Sprintf(
				"priority must be an integer between %d and %d",
				models.MinPriority, models.MaxPriority))
			return
		}
		priority = p
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.reject(w, RejectSize, h.sizeMessage())
			return
		}
		h.reject(w, RejectMultipart, `upload must be a multipart form with a "file" field`)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	payload, header, err := r.FormFile("file")
	if err != nil {
		h.reject(w, RejectMultipart, `upload must be a multipart form with a "file" field`)
		return
	}
	defer func() { _ = payload.Close() }()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		h.reject(w, RejectMultipart, "upload must include a filename")
		return
	}
	if header.Size > h.limits.MaxBytes {
		h.reject(w, RejectSize, h.sizeMessage())
		return
	}

	contentType, err := h.admitContentType(header, payload)
	if err != nil {
		h.reject(w, RejectContentType, err.Error())
		return
	}

	summary, err := csvutil.Validate(payload)
	if err != nil {
		h.reject(w, RejectCSV, fmt.Sprintf("invalid CSV: %v", err))
		return
	}
	if _, err := payload.Seek(0, io.SeekStart); err != nil {
		logger.Error("Failed to rewind upload payload", logger.Err(err))
		InternalServerError(w, "Failed to read upload")
		return
	}

	fileID := uuid.NewString()
	key := blob.MakeKey(fileID, filename)

	span.SetAttributes(
		telemetry.FileID(fileID),
		telemetry.UploadFilename(filename),
		telemetry.UploadContentType(contentType),
		telemetry.UploadPriority(priority),
	)

	size, err := h.blobs.Save(ctx, key, payload)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.Error("Failed to store upload payload",
			logger.Filename(filename),
			logger.Key(key),
			logger.Err(err))
		InternalServerError(w, "Failed to store upload")
		return
	}

	file := &models.File{
		ID:          fileID,
		Filename:    filename,
		StorageKey:  key,
		ContentType: contentType,
		Size:        size,
		Status:      models.FileStatusQueued,
		Priority:    priority,
	}
	if _, err := h.store.CreateFile(ctx, file); err != nil {
		// Roll the payload back so a failed admission leaves nothing behind.
		_ = h.blobs.Remove(ctx, key)
		telemetry.RecordError(ctx, err)
		logger.Error("Failed to create file row",
			logger.FileID(fileID),
			logger.Filename(filename),
			logger.Err(err))
		InternalServerError(w, "Failed to register upload")
		return
	}

	// The file row is durable at this point. If scheduling fails the file
	// stays queued and startup recovery plans it on the next run, so the
	// upload is still acknowledged.
	if err := h.ingest.Enqueue(ctx, fileID); err != nil {
		logger.Warn("Upload accepted but scheduling failed, file will be planned on next start",
			logger.FileID(fileID),
			logger.Err(err))
	}

	observeAccepted(h.metrics, size)
	logger.Info("Upload accepted",
		logger.FileID(fileID),
		logger.Filename(filename),
		logger.ContentType(contentType),
		logger.Size(size),
		logger.Priority(priority),
		logger.Rows(summary.Rows))

	WriteJSONCreated(w, UploadResponse{FileID: fileID})
}

// reject refuses an upload before anything was persisted.
func (h *UploadHandler) reject(w http.ResponseWriter, reason, detail string) {
	observeRejected(h.metrics, reason)
	logger.Debug("Upload rejected",
		logger.Operation(reason),
		"detail", detail)
	BadRequest(w, detail)
}

func (h *UploadHandler) sizeMessage() string {
	return fmt.Sprintf("file exceeds the maximum upload size of %d MB", h.limits.MaxBytes>>20)
}

// admitContentType checks the declared content type against the allow-list
// and returns the type recorded on the file row.
//
// A missing or generic declaration (curl sends application/octet-stream
// for -F uploads without a type) is sniffed from the payload's leading
// bytes instead of being rejected outright; the sniffed type must then be
// in the allow-list.
func (h *UploadHandler) admitContentType(header *multipart.FileHeader, payload multipart.File) (string, error) {
	declared := header.Header.Get("Content-Type")
	if media, _, err := mime.ParseMediaType(declared); err == nil {
		declared = media
	}
	declared = strings.ToLower(strings.TrimSpace(declared))

	if h.typeAllowed(declared) {
		return declared, nil
	}

	if declared != "" && declared != "application/octet-stream" {
		return "", fmt.Errorf("content type %q is not accepted (accepted: %s)",
			declared, strings.Join(h.limits.AllowedTypes, ", "))
	}

	detected, err := mimetype.DetectReader(payload)
	if _, seekErr := payload.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to rewind payload after sniffing: %w", seekErr)
	}
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}

	for _, allowed := range h.limits.AllowedTypes {
		if detected.Is(allowed) {
			return strings.ToLower(detected.String()), nil
		}
	}
	return "", fmt.Errorf("detected content type %q is not accepted (accepted: %s)",
		detected.String(), strings.Join(h.limits.AllowedTypes, ", "))
}

// typeAllowed reports whether the declared media type is in the allow-list.
func (h *UploadHandler) typeAllowed(declared string) bool {
	if declared == "" {
		return false
	}
	for _, accepted := range h.limits.AllowedTypes {
		media, _, err := mime.ParseMediaType(accepted)
		if err != nil {
			media = accepted
		}
		if declared == strings.ToLower(strings.TrimSpace(media)) {
			return true
		}
	}
	return false
}
