package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply on a post. RepliedToID points at another comment of the same post.
type Comment struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID      string    `gorm:"type:varchar(36);not null;index" json:"postId"`
	AuthorID    string    `gorm:"type:varchar(36);not null;index" json:"authorId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	RepliedToID *string   `gorm:"type:varchar(36)" json:"repliedToId,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Post   Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns the id and normalizes CreatedAt like Post.
func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)
	return nil
}

// CommentSummary is a comment enriched with its author and reaction state.
type CommentSummary struct {
	ID                   string    `json:"id"`
	PostID               string    `json:"postId"`
	Content              string    `json:"content"`
	RepliedToID          *string   `json:"repliedToId,omitempty"`
	Author               Author    `json:"author"`
	ReactionCount        int64     `json:"reactionCount"`
	IsLikedByCurrentUser bool      `json:"isLikedByCurrentUser"`
	CreatedAt            time.Time `json:"createdAt"`
}

// CommentPage is a keyset-paginated list of comments.
type CommentPage struct {
	Items      []CommentSummary `json:"items"`
	NextCursor *string          `json:"nextCursor"`
}
