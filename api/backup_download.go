package api

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackupDownload streams a finished container out of S3. Admin-only, and
// only keys under backups/ can be fetched through it.
func (a *API) BackupDownload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	if !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Admin privileges required",
			"requestID": requestID,
		})
		return
	}

	key := c.Query("key")
	if !strings.HasPrefix(key, "backups/") || strings.Contains(key, "..") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid backup key",
			"requestID": requestID,
		})
		return
	}

	out, err := a.S3.GetRange(c.Request.Context(), key, c.GetHeader("Range"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Backup not found",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch backup container", zap.String("key", key), zap.Error(err))
		return
	}
	defer out.Body.Close()

	status := http.StatusOK

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(path.Base(key)))

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
