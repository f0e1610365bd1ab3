// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a member account. Accounts are provisioned by the identity provider;
// this service only reads them.
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DisplayName string    `gorm:"size:100;not null;index" json:"displayName"`
	Email       string    `gorm:"size:255;uniqueIndex;not null" json:"-"`
	AvatarURL   string    `gorm:"size:512" json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when none was supplied.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Author is the public projection of a user embedded in post and comment payloads.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// UserProfile is a user with social graph counters relative to the caller.
type UserProfile struct {
	Author
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
	IsFollowedByMe bool      `json:"isFollowedByMe"`
	MemberSince    time.Time `json:"memberSince"`
}

// UserListItem is one row of a display-name search.
type UserListItem struct {
	Author
	FollowersCount int64 `json:"followersCount"`
}

// UserPage is a page of search results with an opaque offset cursor.
type UserPage struct {
	Items      []UserListItem `json:"items"`
	NextCursor *string        `json:"nextCursor"`
}
