package api

import (
	"errors"
	"net/http"

	"mediavault/media-api/internal/model"
	"mediavault/media-api/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type tagCreateRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

// TagCreate makes a new tag, or returns the existing one when the name is
// already taken. Slugs are derived from the name
func (a *API) TagCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var req tagCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid tag data",
			"requestID": requestID,
		})
		return
	}

	var existing model.Tag

	err := a.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, existing)
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check for existing tag", zap.Error(err))
		return
	}

	tag := model.Tag{
		Name: req.Name,
		Slug: util.Slugify(req.Name),
	}

	if err := a.DB.Create(&tag).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create tag", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, tag)
}
