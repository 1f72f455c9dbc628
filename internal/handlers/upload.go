package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/devlinkhq/devlink-backend/internal/services"
)

type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadHandler pushes post images and avatars to Cloudinary. The
// service is nil when credentials are not configured.
type UploadHandler struct {
	cloudinary *services.CloudinaryService
	log        zerolog.Logger
}

func NewUploadHandler(cloudinary *services.CloudinaryService, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{cloudinary: cloudinary, log: log}
}

// UploadFile handles a "file" multipart form field, max 10MB.
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h.cloudinary == nil {
		writeMessage(w, http.StatusInternalServerError, "File upload service not available")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form", err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = "devlink"
	}

	url, err := h.cloudinary.UploadFileFromHeader(r.Context(), fileHeader, folder)
	if err != nil {
		h.log.Error().Err(err).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "Failed to upload file", err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: "File uploaded successfully",
		URL:     url,
	})
}
