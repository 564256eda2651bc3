// Package db contains database initialization
package db

import (
	"fmt"

	"mediavault/media-api/internal/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Reference categories every installation carries
var seedCategories = []model.Category{
	{Name: "0+", Slug: "0-plus", Description: "Content suitable for everyone"},
	{Name: "16+", Slug: "16-plus", Description: "Content for viewers 16 and up"},
	{Name: "18+", Slug: "18-plus", Description: "Adult-only content"},
}

func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch viper.GetString("db.driver") {
	case "postgres":
		dialector = postgres.Open(viper.GetString("db.dsn"))
	default:
		dialector = sqlite.Open(viper.GetString("db.dsn"))
	}

	db, err := gorm.Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(
		model.User{},
		model.Category{},
		model.Tag{},
		model.File{},
		model.Group{},
		model.GroupMember{},
		model.FileGroup{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	if err := seed(db); err != nil {
		return nil, fmt.Errorf("failed to seed categories, %w", err)
	}

	return db, nil
}

// seed creates the well-known categories if they're missing. Existing rows
// are never touched, categories are immutable reference data.
func seed(db *gorm.DB) error {
	for _, c := range seedCategories {
		var n int64

		err := db.Model(model.Category{}).Where("slug = ?", c.Slug).Count(&n).Error
		if err != nil {
			return err
		}

		if n > 0 {
			continue
		}

		if err := db.Create(&c).Error; err != nil {
			return err
		}
	}

	return nil
}
