package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory is a node in a user's folder tree. ParentID nil means the
// directory sits at the root. The parent chain must stay acyclic; moves are
// validated in the service layer rather than by the schema.
type Directory struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string     `json:"name" gorm:"not null"`
	OwnerID   uuid.UUID  `json:"ownerId" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"parentId" gorm:"type:uuid;index"`
	IsPublic  bool       `json:"isPublic" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`
}

func (d *Directory) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
