package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a piece of user content, optionally pinned to a location.
// CreatedAt never changes after insert; together with ID it forms the feed sort key.
type Post struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID  string      `gorm:"type:varchar(36);not null;index" json:"authorId"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	Latitude  *float64    `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude *float64    `gorm:"type:double precision" json:"longitude,omitempty"`
	Address   *string     `gorm:"size:512" json:"address,omitempty"`
	CreatedAt time.Time   `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Photos    []PostPhoto `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns the id and pins CreatedAt to microsecond precision so
// the value read back from Postgres matches the one used in cursors.
func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Microsecond)
	return nil
}

// HasLocation reports whether both coordinates are set.
func (p *Post) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// PostPhoto is a reference to an image stored by the media collaborator.
type PostPhoto struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID   string `gorm:"type:varchar(36);not null;index" json:"-"`
	URL      string `gorm:"size:1024;not null" json:"url"`
	PublicID string `gorm:"size:255" json:"publicId,omitempty"`
	Position int    `gorm:"not null;default:0" json:"position"`
}

// TableName specifies the table name for GORM
func (PostPhoto) TableName() string {
	return "post_photos"
}

// BeforeCreate assigns a UUID when none was supplied.
func (p *PostPhoto) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
