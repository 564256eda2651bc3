package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCategorySlug is assigned to uploads that don't pick a category
const DefaultCategorySlug = "0-plus"

// Category is immutable reference data ("0+", "16+", "18+"). Rows are seeded
// at migration and never mutated through the API.
type Category struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}
