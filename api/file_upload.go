package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediavault/media-api/internal/model"
	"mediavault/media-api/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	temp := filepath.Join(os.TempDir(), util.RandStr(10))
	defer os.Remove(temp)

	if err := c.SaveUploadedFile(fileHeader, temp); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to persist upload", zap.Error(err))
		return
	}

	fileID := uuid.NewString()
	key := "uploads/" + fileID + "_" + filepath.Base(fileHeader.Filename)

	if err := a.S3.UploadFile(c.Request.Context(), temp, key, mimeType); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to store file",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upload to S3", zap.Error(err))
		return
	}

	categoryID := c.PostForm("category_id")
	if categoryID == "" {
		// Uploads without a category land in the default one
		var def model.Category
		if err := a.DB.Where("slug = ?", model.DefaultCategorySlug).First(&def).Error; err == nil {
			categoryID = def.ID
		}
	}

	var tags model.StringSlice
	if raw := c.PostForm("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	file := model.File{
		ID:                fileID,
		OriginalName:      filepath.Base(fileHeader.Filename),
		MimeType:          mimeType,
		FileKey:           key,
		Size:              fileHeader.Size,
		Description:       c.PostForm("description"),
		Tags:              tags,
		TranscodingStatus: model.TranscodingNotStarted,
		OwnerID:           userID,
		CategoryID:        categoryID,
	}

	if err := a.DB.Create(&file).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create file row", zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, file)
}
