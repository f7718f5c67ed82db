// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an operator who signed in through the mock identity flow. The DID
// and public key are generated at first login and never verified.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email       string    `gorm:"size:255;uniqueIndex;not null"`
	CompanyName string    `gorm:"size:255;not null"`
	DID         string    `gorm:"column:did;size:255;uniqueIndex;not null"`
	PublicKey   string    `gorm:"size:66;not null"`
	AuthMethod  string    `gorm:"size:32;not null"`
	IsVerified  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
