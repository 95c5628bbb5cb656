package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/storage"
)

// maxUploadSize caps vehicle image uploads at 5 MiB.
const maxUploadSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadHandler stores vehicle images
type UploadHandler struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store storage.ObjectStore, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// Upload handles POST /api/upload (multipart, field "file")
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		// MaxBytesReader trips mid-parse for chunked uploads too, where
		// ContentLength is unknown.
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	f, err := header.Open()
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	defer f.Close()

	url, err := h.store.Save(c.Request.Context(), header.Filename, f)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}
