package repository

import (
	"context"

	"geofeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository stores likes on posts and comments.
type ReactionRepository interface {
	LikePost(ctx context.Context, userID, postID string) error
	UnlikePost(ctx context.Context, userID, postID string) error
	PostReactionCounts(ctx context.Context, postIDs []string) (map[string]int64, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	LikeComment(ctx context.Context, userID, commentID string) error
	UnlikeComment(ctx context.Context, userID, commentID string) error
	CommentReactionCounts(ctx context.Context, commentIDs []string) (map[string]int64, error)
	LikedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) insert(ctx context.Context, row any, resource, id string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError(resource, id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reactionRepository) LikePost(ctx context.Context, userID, postID string) error {
	return r.insert(ctx, &models.PostReaction{UserID: userID, PostID: postID}, "Post", postID)
}

func (r *reactionRepository) UnlikePost(ctx context.Context, userID, postID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostReaction{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reactionRepository) LikeComment(ctx context.Context, userID, commentID string) error {
	return r.insert(ctx, &models.CommentReaction{UserID: userID, CommentID: commentID}, "Comment", commentID)
}

func (r *reactionRepository) UnlikeComment(ctx context.Context, userID, commentID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CommentReaction{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *reactionRepository) PostReactionCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return r.counts(ctx, &models.PostReaction{}, "post_id", postIDs)
}

func (r *reactionRepository) CommentReactionCounts(ctx context.Context, commentIDs []string) (map[string]int64, error) {
	return r.counts(ctx, &models.CommentReaction{}, "comment_id", commentIDs)
}

func (r *reactionRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return r.liked(ctx, &models.PostReaction{}, "post_id", userID, postIDs)
}

func (r *reactionRepository) LikedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	return r.liked(ctx, &models.CommentReaction{}, "comment_id", userID, commentIDs)
}

func (r *reactionRepository) counts(ctx context.Context, model any, column string, ids []string) (map[string]int64, error) {
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}
	var rows []idCount
	err := r.db.WithContext(ctx).
		Model(model).
		Select(column+" AS id, COUNT(*) AS count").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return countsByID(rows), nil
}

func (r *reactionRepository) liked(ctx context.Context, model any, column, userID string, ids []string) (map[string]bool, error) {
	if userID == "" || len(ids) == 0 {
		return map[string]bool{}, nil
	}
	var liked []string
	err := r.db.WithContext(ctx).
		Model(model).
		Where("user_id = ? AND "+column+" IN ?", userID, ids).
		Pluck(column, &liked).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return idSet(liked), nil
}
