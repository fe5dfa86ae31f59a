package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/kinfolk/internal/catalog"
	"github.com/your-org/kinfolk/internal/media"
	"github.com/your-org/kinfolk/internal/models"
	"github.com/your-org/kinfolk/internal/storage"
)

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a bare internal error.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrPersonNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
	case errors.Is(err, storage.ErrDuplicateIDNumber):
		c.JSON(http.StatusConflict, gin.H{"error": "id_number already exists"})
	case errors.Is(err, catalog.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "person is being updated concurrently, retry"})
	case errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrFileRequired),
		errors.Is(err, media.ErrCategoryMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
