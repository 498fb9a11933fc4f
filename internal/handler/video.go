package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/repository"
	"github.com/sakif/videohub/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// the rest spills to a temp file.
const multipartMemory = 32 << 20

// VideoHandler serves uploads, listings and review decisions.
type VideoHandler struct {
	videos        *service.VideoService
	reviews       *service.ReviewService
	maxUploadSize int64
	logger        *slog.Logger
}

func NewVideoHandler(
	videos *service.VideoService,
	reviews *service.ReviewService,
	maxUploadSize int64,
	logger *slog.Logger,
) *VideoHandler {
	return &VideoHandler{
		videos:        videos,
		reviews:       reviews,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// HandleList returns a page of an account's videos, newest first.
//
// HTTP: GET /api/accounts/{id}/videos?limit=20&offset=0
func (h *VideoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	videos, err := h.videos.ListByAccount(r.Context(), id, chi.URLParam(r, "id"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// HandleUpload accepts a multipart upload with fields "title",
// "description" and "file".
//
// HTTP: POST /api/accounts/{id}/videos
func (h *VideoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: fmt.Sprintf("uploads are limited to %d MB", h.maxUploadSize>>20),
			})
			return
		}
		writeError(w, apperror.ValidationFailed("file", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "file is required"))
		return
	}
	defer file.Close()

	video, err := h.videos.Upload(r.Context(), id, chi.URLParam(r, "id"), service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		Size:        header.Size,
		File:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

// HTTP: GET /api/videos/{id}
func (h *VideoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	video, err := h.videos.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// HandleReview applies an approve or reject decision. A failed publication
// is not an HTTP error: the returned video carries status publish_failed
// and the failure reason.
//
// HTTP: POST /api/videos/{id}/review
// REQUEST BODY: {"decision": "approve", "notes": "..."}
func (h *VideoHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var in service.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	video, err := h.reviews.Review(r.Context(), id, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// HandlePublish publishes an approved video that was waiting for its
// account to connect a channel.
//
// HTTP: POST /api/videos/{id}/publish
func (h *VideoHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	video, err := h.reviews.PublishPending(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("limit", "limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}
