package service

import (
	"context"

	"geofeed/internal/models"
	"geofeed/internal/repository"
)

// InteractionService toggles likes and follows. Each toggle is an idempotent
// insert or delete on a unique key, so racing toggles settle on one state.
type InteractionService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
	follows   repository.FollowRepository
}

func NewInteractionService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	reactions repository.ReactionRepository,
	follows repository.FollowRepository,
) *InteractionService {
	return &InteractionService{
		posts:     posts,
		comments:  comments,
		users:     users,
		reactions: reactions,
		follows:   follows,
	}
}

// SetPostReaction likes or unlikes a post and returns the resulting state.
func (s *InteractionService) SetPostReaction(ctx context.Context, callerID, postID string, liked bool) (bool, error) {
	if err := requireCaller(callerID); err != nil {
		return false, err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}

	var err error
	if liked {
		err = s.reactions.LikePost(ctx, callerID, postID)
	} else {
		err = s.reactions.UnlikePost(ctx, callerID, postID)
	}
	if err != nil {
		return false, err
	}
	return liked, nil
}

// SetCommentReaction likes or unlikes a comment that must belong to postID.
func (s *InteractionService) SetCommentReaction(ctx context.Context, callerID, postID, commentID string, liked bool) (bool, error) {
	if err := requireCaller(callerID); err != nil {
		return false, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return false, err
	}
	if comment.PostID != postID {
		return false, models.NewNotFoundError("Comment", commentID)
	}

	if liked {
		err = s.reactions.LikeComment(ctx, callerID, commentID)
	} else {
		err = s.reactions.UnlikeComment(ctx, callerID, commentID)
	}
	if err != nil {
		return false, err
	}
	return liked, nil
}

// SetFollow follows or unfollows targetID and returns the resulting state.
func (s *InteractionService) SetFollow(ctx context.Context, callerID, targetID string, followed bool) (bool, error) {
	if err := requireCaller(callerID); err != nil {
		return false, err
	}
	if callerID == targetID {
		return false, models.NewValidationError("cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return false, err
	}

	var err error
	if followed {
		err = s.follows.Follow(ctx, callerID, targetID)
	} else {
		err = s.follows.Unfollow(ctx, callerID, targetID)
	}
	if err != nil {
		return false, err
	}
	return followed, nil
}
