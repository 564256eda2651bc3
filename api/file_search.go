package api

import (
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileSearch filters a user's files by name/description substring, tag and
// category
func (a *API) FileSearch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	query := a.DB.Where("owner_id = ?", userID)

	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("original_name LIKE ? OR description LIKE ?", like, like)
	}

	if tag := c.Query("tag"); tag != "" {
		// Tags are stored comma-joined, match the ID anywhere in the list
		query = query.Where(
			"tags = ? OR tags LIKE ? OR tags LIKE ? OR tags LIKE ?",
			tag, tag+",%", "%,"+tag, "%,"+tag+",%",
		)
	}

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var files []model.File

	if err := query.Order("created_at DESC").Limit(200).Find(&files).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to search files", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}
