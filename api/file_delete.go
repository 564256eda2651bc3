package api

import (
	"errors"
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileDelete removes a file row along with every blob it owns: the
// original, thumbnail, preview and any transcoded renditions
func (a *API) FileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fileID := c.Param("id")
	if fileID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "ID is missing",
			"requestID": requestID,
		})
		return
	}

	var file model.File

	err := a.DB.
		Where("owner_id = ? AND id = ?", userID, fileID).
		First(&file).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "File not found. It either doesn't exist or you don't own it",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if file exists", zap.Error(err))
		return
	}

	keys := []string{file.FileKey}
	if file.ThumbnailKey != "" {
		keys = append(keys, file.ThumbnailKey)
	}
	if file.PreviewKey != "" {
		keys = append(keys, file.PreviewKey)
	}

	// Renditions live under a prefix, enumerate them
	if file.HLSManifestKey != "" || file.DashManifestKey != "" {
		rendered, err := a.S3.List(c.Request.Context(), "transcoded/"+file.ID+"/")
		if err != nil {
			zap.L().Error("Failed to list renditions for deletion", zap.Error(err))
		} else {
			keys = append(keys, rendered...)
		}
	}

	if err := a.S3.DeleteMany(c.Request.Context(), keys); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete blobs from S3", zap.Error(err))
		return
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", file.ID).Delete(model.FileGroup{}).Error; err != nil {
			return err
		}

		return tx.Delete(&file).Error
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file row", zap.Error(err))
		return
	}

	c.Status(http.StatusOK)
}
