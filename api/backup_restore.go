package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediavault/media-api/internal/model"
	"mediavault/media-api/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type restoreRequest struct {
	S3Key string `json:"s3_key" binding:"required"`
}

// BackupRestore queues a restore job. The container comes either from an
// existing key under backups/ (JSON body) or from a multipart upload, which
// is staged in S3 and cleaned up after the job finishes.
func (a *API) BackupRestore(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	var (
		s3Key       string
		deleteAfter bool
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "No backup file provided",
				"requestID": requestID,
			})
			return
		}

		temp := filepath.Join(os.TempDir(), util.RandStr(10))
		defer os.Remove(temp)

		if err := c.SaveUploadedFile(fileHeader, temp); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to save uploaded container", zap.Error(err))
			return
		}

		s3Key = "backups/uploads/" + util.RandStr(16) + ".zip"
		deleteAfter = true

		if err := a.S3.UploadFile(c.Request.Context(), temp, s3Key, "application/zip"); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Failed to stage backup file",
				"requestID": requestID,
			})

			zap.L().Error("Failed to stage container in S3", zap.Error(err))
			return
		}
	} else {
		var req restoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Either upload a backup file or provide an s3_key",
				"requestID": requestID,
			})
			return
		}

		// Restores only ever read containers this service wrote
		if !strings.HasPrefix(req.S3Key, "backups/") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid backup key",
				"requestID": requestID,
			})
			return
		}

		s3Key = req.S3Key
	}

	jobID, err := a.Backups.SubmitRestore(user, s3Key, deleteAfter)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Restore could not be queued, try again later",
			"requestID": requestID,
		})

		zap.L().Error("Failed to queue restore", zap.Error(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}
