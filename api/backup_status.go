package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) BackupStatus(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	view, ok := a.Jobs.Status(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "No such job",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, view)
}
