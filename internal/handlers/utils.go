package handlers

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/logging"
)

// UtilHandler implements supporting endpoints that do not belong to an entity.
type UtilHandler struct {
	Uploads UploadGateway
}

type presignResponse struct {
	URL string `json:"url"`
}

// PresignUpload handles GET /api/v1/utils/presigned-url. The returned URL
// lets the client upload the object directly to the store.
func (h UtilHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Uploads == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	fileName := strings.TrimSpace(r.URL.Query().Get("fileName"))
	fileType := strings.TrimSpace(r.URL.Query().Get("fileType"))
	if fileName == "" || fileType == "" {
		respondError(ctx, w, http.StatusBadRequest, "FileName and FileType are required")
		return
	}

	url, err := h.Uploads.PresignUpload(ctx, fileName, fileType)
	if err != nil {
		logging.FromContext(ctx).Error("presign upload", "error", err, "fileName", fileName)
		respondError(ctx, w, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}

	respondJSON(ctx, w, http.StatusOK, "Presigned URL generated successfully", presignResponse{URL: url})
}
