package leavehandler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"hrleave/internal/domain/audit"
	"hrleave/internal/platform/storage"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
)

func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if h.Files == nil {
		api.Fail(w, http.StatusServiceUnavailable, "storage_unavailable", "attachment storage is not configured", requestID)
		return
	}

	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}

	limit := h.MaxAttachmentBytes
	if limit <= 0 {
		limit = defaultMaxAttachmentBytes
	}
	// Multipart framing needs some room on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "attachment too large or malformed", requestID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "missing file field", requestID)
		return
	}
	defer file.Close()
	if header.Size > limit {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "attachment too large", requestID)
		return
	}

	sniff := make([]byte, 512)
	n, err := file.Read(sniff)
	if err != nil && err != io.EOF {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read file", requestID)
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !storage.AllowedContentTypes[contentType] {
		api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "only PDF, JPEG and PNG documents are accepted", requestID)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to process file", requestID)
		return
	}

	key := storage.AttachmentKey(user.TenantID, current.ID, header.Filename)
	info, err := h.Files.Save(r.Context(), key, file, contentType)
	if err != nil {
		slog.Error("attachment upload failed", "leaveId", current.ID, "key", key, "err", err)
		api.Fail(w, http.StatusBadGateway, "storage_error", "failed to store attachment", requestID)
		return
	}

	updated, err := h.Service.AttachDocument(r.Context(), user.TenantID, current.ID, info.URL)
	h.count("attach", err)
	if err != nil {
		if delErr := h.Files.Delete(context.WithoutCancel(r.Context()), key); delErr != nil {
			slog.Warn("orphaned attachment cleanup failed", "key", key, "err", delErr)
		}
		writeError(w, r, err)
		return
	}

	h.record(r, user, audit.ActionLeaveAttach, audit.EntityLeaveRequest, strconv.FormatInt(updated.ID, 10), current, updated)
	api.Success(w, updated, requestID)
}
