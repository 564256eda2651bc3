package api

import (
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TagDelete is admin-only. File rows keep the dangling tag ID, readers
// treat unknown IDs as absent
func (a *API) TagDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	user := c.MustGet("user").(*model.User)

	if !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Admin privileges required",
			"requestID": requestID,
		})
		return
	}

	tagID := c.Param("id")

	res := a.DB.Where("id = ?", tagID).Delete(model.Tag{})
	if res.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete tag", zap.Error(res.Error))
		return
	}

	if res.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Tag not found",
			"requestID": requestID,
		})
		return
	}

	c.Status(http.StatusOK)
}
