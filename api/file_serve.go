package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileServe streams a file (or one of its derivatives) straight from S3,
// passing the client's Range header through so video seeks work
func (a *API) FileServe(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	fileID := c.Param("id")
	if fileID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file ID provided",
			"requestID": requestID,
		})
		return
	}

	var file model.File

	err := a.DB.Where("id = ?", fileID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if file exists", zap.String("id", fileID), zap.Error(err))
		return
	}

	key := file.FileKey
	contentType := file.MimeType

	switch c.Query("variant") {
	case "thumbnail":
		key = file.ThumbnailKey
		contentType = "image/jpeg"
	case "preview":
		key = file.PreviewKey
		contentType = "image/jpeg"
	case "hls":
		key = file.HLSManifestKey
		contentType = "application/vnd.apple.mpegurl"
	case "dash":
		key = file.DashManifestKey
		contentType = "application/dash+xml"
	}

	if key == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Requested variant not available",
			"requestID": requestID,
		})
		return
	}

	out, err := a.S3.GetRange(c.Request.Context(), key, c.GetHeader("Range"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to fetch file",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch object", zap.String("key", key), zap.Error(err))
		return
	}
	defer out.Body.Close()

	status := http.StatusOK

	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Type", contentType)

	if out.ContentLength != nil {
		c.Header("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}

	if out.ContentRange != nil {
		c.Header("Content-Range", *out.ContentRange)
		status = http.StatusPartialContent
	}

	c.Status(status)
	io.Copy(c.Writer, out.Body)
}
