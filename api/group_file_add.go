package api

import (
	"errors"
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type groupFileAddRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// GroupFileAdd shares one of the caller's files with a group. Editors and
// above can share, and sharing the same file twice is a no-op.
func (a *API) GroupFileAdd(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	groupID := c.Param("id")

	var req groupFileAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid share data",
			"requestID": requestID,
		})
		return
	}

	var group model.Group
	if err := a.DB.Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Group not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up group", zap.Error(err))
		return
	}

	if group.CreatorID != userID {
		var n int64
		a.DB.Model(model.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND role IN ? AND revoked_at IS NULL",
				groupID, userID, []string{model.RoleEditor, model.RoleAdmin}).
			Count(&n)

		if n == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Editor privileges required to share files",
				"requestID": requestID,
			})
			return
		}
	}

	var file model.File

	err := a.DB.Where("owner_id = ? AND id = ?", userID, req.FileID).First(&file).Error
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

		zap.L().Error("Failed to look up file", zap.Error(err))
		return
	}

	link := model.FileGroup{FileID: file.ID, GroupID: groupID}

	err = a.DB.
		Where("file_id = ? AND group_id = ?", file.ID, groupID).
		FirstOrCreate(&link).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to link file to group", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, link)
}
