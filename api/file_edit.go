package api

import (
	"errors"
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fileEditRequest struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	CategoryID  *string   `json:"category_id"`
}

func (a *API) FileEdit(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	fileID := c.Param("id")

	var req fileEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid edit data",
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

		zap.L().Error("Failed to look up file", zap.Error(err))
		return
	}

	updates := map[string]any{}

	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Tags != nil {
		// Tag IDs are stored as-is, dangling references are tolerated
		updates["tags"] = model.StringSlice(*req.Tags)
	}
	if req.CategoryID != nil {
		var n int64
		a.DB.Model(model.Category{}).Where("id = ?", *req.CategoryID).Count(&n)
		if n == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":     "Unknown category",
				"requestID": requestID,
			})
			return
		}

		updates["category_id"] = *req.CategoryID
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, file)
		return
	}

	if err := a.DB.Model(&file).Updates(updates).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update file", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, file)
}
