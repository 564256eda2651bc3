package api

import (
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) TagList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var tags []model.Tag

	if err := a.DB.Order("name ASC").Find(&tags).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch tags", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
