package api

import (
	"errors"
	"net/http"

	"mediavault/media-api/internal/backup"
	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackupCreate queues a backup job and returns its ID. Scope defaults to
// the caller's own data, full backups need admin rights.
func (a *API) BackupCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	scope := c.DefaultQuery("scope", backup.ScopeUser)
	if scope != backup.ScopeUser && scope != backup.ScopeFull {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Scope must be either 'user' or 'full'",
			"requestID": requestID,
		})
		return
	}

	jobID, err := a.Backups.SubmitBackup(user, scope)
	if err != nil {
		if errors.Is(err, backup.ErrNotAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Full backups require admin privileges",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Backup could not be queued, try again later",
			"requestID": requestID,
		})

		zap.L().Error("Failed to queue backup", zap.Error(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}
