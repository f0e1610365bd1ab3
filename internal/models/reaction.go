package models

import "time"

// PostReaction records that a user liked a post. The composite key makes it unique per pair.
type PostReaction struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	PostID    string    `gorm:"primaryKey;type:varchar(36);index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`

	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (PostReaction) TableName() string {
	return "post_reactions"
}

// CommentReaction records that a user liked a comment.
type CommentReaction struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	CommentID string    `gorm:"primaryKey;type:varchar(36);index" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`

	Comment Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (CommentReaction) TableName() string {
	return "comment_reactions"
}
