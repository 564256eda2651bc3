package api

import (
	"net/http"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) CategoryList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var categories []model.Category

	if err := a.DB.Order("name ASC").Find(&categories).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch categories", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
