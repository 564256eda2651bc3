package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles in increasing order of privilege
const (
	RoleReader = "reader"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

type Group struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `json:"description,omitempty"`
	CreatorID   string `gorm:"size:36;index;not null" json:"creator_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []GroupMember `gorm:"foreignKey:GroupID" json:"-"`
	Files   []File        `gorm:"many2many:file_groups;" json:"-"`
}

func (g *Group) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	return nil
}

type GroupMember struct {
	UserID  string `gorm:"primaryKey;size:36" json:"user_id"`
	GroupID string `gorm:"primaryKey;size:36" json:"group_id"`
	Role    string `gorm:"size:20;default:'reader'" json:"role"`

	InvitedBy  string     `gorm:"size:36" json:"invited_by,omitempty"`
	InvitedAt  time.Time  `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// FileGroup is the File<->Group association table. Declared explicitly so
// the restore engine can stage rows into it directly.
type FileGroup struct {
	FileID  string `gorm:"primaryKey;size:36" json:"file_id"`
	GroupID string `gorm:"primaryKey;size:36" json:"group_id"`
}

func (FileGroup) TableName() string {
	return "file_groups"
}
