package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local projection of an identity resolved by the upstream auth provider.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the identity provider did not supply one.
func (u *User) BeforeCreate(*gorm.DB) error {
	if strings.TrimSpace(u.ID) == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName strips the provider generated "_user" suffix from usernames.
func (u User) DisplayName() string {
	if idx := strings.Index(u.Username, "_user"); idx > 0 {
		return u.Username[:idx]
	}
	return u.Username
}
