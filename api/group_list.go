package api

import (
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GroupList returns every group the caller belongs to
func (a *API) GroupList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var groups []model.Group

	err := a.DB.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.revoked_at IS NULL", userID).
		Find(&groups).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch groups", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
