package api

import (
	"errors"
	"net/http"
	"time"

	"mediavault/media-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memberAddRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=reader editor admin"`
}

// GroupMemberAdd invites a user into a group. Only group admins can do
// this, and the creator's admin role can never be changed through it.
func (a *API) GroupMemberAdd(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	groupID := c.Param("id")

	var req memberAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid member data",
			"requestID": requestID,
		})
		return
	}

	if req.Role == "" {
		req.Role = model.RoleReader
	}

	group, ok := a.requireGroupAdmin(c, groupID, userID)
	if !ok {
		return
	}

	if req.UserID == group.CreatorID {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     "The group creator's membership can't be modified",
			"requestID": requestID,
		})
		return
	}

	var target model.User
	if err := a.DB.Where("id = ?", req.UserID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up user", zap.Error(err))
		return
	}

	now := time.Now()
	member := model.GroupMember{
		UserID:     req.UserID,
		GroupID:    groupID,
		Role:       req.Role,
		InvitedBy:  userID,
		InvitedAt:  now,
		AcceptedAt: &now,
	}

	// Re-adding a revoked member reactivates them with the new role
	err := a.DB.
		Where("user_id = ? AND group_id = ?", req.UserID, groupID).
		Assign(map[string]any{"role": req.Role, "revoked_at": nil}).
		FirstOrCreate(&member).
		Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to add group member", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, member)
}

// requireGroupAdmin loads the group and verifies the caller is its creator
// or holds the admin role. Writes the error response itself on failure.
func (a *API) requireGroupAdmin(c *gin.Context, groupID, userID string) (model.Group, bool) {
	requestID := c.MustGet("requestID").(string)

	var group model.Group

	if err := a.DB.Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "Group not found",
				"requestID": requestID,
			})
			return group, false
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up group", zap.Error(err))
		return group, false
	}

	if group.CreatorID == userID {
		return group, true
	}

	var n int64
	a.DB.Model(model.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ? AND revoked_at IS NULL", groupID, userID, model.RoleAdmin).
		Count(&n)

	if n == 0 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Group admin privileges required",
			"requestID": requestID,
		})
		return group, false
	}

	return group, true
}
