package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/coretrack/warranty-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService *service.FileService
	maxUploadMB int64
	logger      *zap.Logger
}

func NewFileHandler(fileService *service.FileService, maxUploadMB int64, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

// Upload godoc
// @Summary Upload a file to a service case
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param caseCode path string true "Case code"
// @Param file formData file true "File to upload"
// @Success 201 {object} domain.Attachment
// @Failure 404 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases/code/{caseCode}/attachments [post]
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Limit request size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	caseCode := chi.URLParam(r, "caseCode")
	att, err := h.fileService.UploadToCase(r.Context(), caseCode, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.logger.Error("failed to upload attachment",
			zap.String("case_code", caseCode),
			zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, att)
}

// List godoc
// @Summary List attachments for a service case
// @Tags Files
// @Produce json
// @Param caseCode path string true "Case code"
// @Success 200 {array} domain.Attachment
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases/code/{caseCode}/attachments [get]
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	atts, err := h.fileService.ListByCase(r.Context(), chi.URLParam(r, "caseCode"))
	if err != nil {
		h.logger.Error("failed to list attachments", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, atts)
}

// Download godoc
// @Summary Download an attachment
// @Tags Files
// @Produce application/octet-stream
// @Param id path string true "Attachment ID"
// @Success 200
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /attachments/{id}/download [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	att, reader, err := h.fileService.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to download attachment", zap.Error(err), zap.String("attachment_id", id))
		respondServiceError(w, err)
		return
	}
	defer reader.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+att.Filename+"\"")
	w.Header().Set("Content-Type", contentType)
	if att.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
	}

	_, _ = io.Copy(w, reader)
}

// Delete godoc
// @Summary Delete an attachment
// @Tags Files
// @Param id path string true "Attachment ID"
// @Success 204 "No Content"
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /attachments/{id} [delete]
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.fileService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
