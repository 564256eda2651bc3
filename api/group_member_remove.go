package api

import (
	"net/http"
	"time"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GroupMemberRemove revokes a membership rather than deleting the row, so
// the invite history survives. The creator can never be removed.
func (a *API) GroupMemberRemove(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	groupID := c.Param("id")
	targetID := c.Param("userID")

	group, ok := a.requireGroupAdmin(c, groupID, userID)
	if !ok {
		return
	}

	if targetID == group.CreatorID {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "The group creator can't be removed",
			"requestID": requestID,
		})
		return
	}

	res := a.DB.Model(model.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND revoked_at IS NULL", groupID, targetID).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to revoke membership", zap.Error(res.Error))
		return
	}

	if res.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Membership not found",
			"requestID": requestID,
		})
		return
	}

	c.Status(http.StatusOK)
}
