package api

import (
	"net/http"
	"time"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type groupCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// GroupCreate makes a group and enrolls the creator as an admin member in
// the same transaction. The creator's membership is never removable.
func (a *API) GroupCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var req groupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid group data",
			"requestID": requestID,
		})
		return
	}

	group := model.Group{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   userID,
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		now := time.Now()

		return tx.Create(&model.GroupMember{
			UserID:     userID,
			GroupID:    group.ID,
			Role:       model.RoleAdmin,
			InvitedBy:  userID,
			InvitedAt:  now,
			AcceptedAt: &now,
		}).Error
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create group", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, group)
}
