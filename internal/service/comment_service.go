package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"geofeed/internal/cursor"
	"geofeed/internal/models"
	"geofeed/internal/repository"

	"golang.org/x/sync/errgroup"
)

const maxCommentLen = 2000

type CommentService struct {
	comments  repository.CommentRepository
	posts     repository.PostRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
	paging    Paging
}

type CreateCommentInput struct {
	CallerID    string
	PostID      string
	Content     string
	RepliedToID *string
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	reactions repository.ReactionRepository,
	paging Paging,
) *CommentService {
	return &CommentService{
		comments:  comments,
		posts:     posts,
		users:     users,
		reactions: reactions,
		paging:    paging,
	}
}

// List pages a post's comments newest first with the same lenient keyset
// cursor as the feeds.
func (s *CommentService) List(ctx context.Context, postID, rawCursor string, pageSize int, callerID string) (*models.CommentPage, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	size := s.paging.Size(pageSize)
	var after *cursor.Anchor
	if anchor, ok := cursor.DecodeAnchor(rawCursor); ok {
		after = &anchor
	}

	comments, err := s.comments.ListByPost(ctx, postID, after, size)
	if err != nil {
		return nil, err
	}

	items, err := s.summarize(ctx, comments, callerID)
	if err != nil {
		return nil, err
	}

	page := &models.CommentPage{Items: items}
	if len(comments) == size {
		last := comments[len(comments)-1]
		next := cursor.EncodeAnchor(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.CommentSummary, error) {
	if err := requireCaller(in.CallerID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}
	if _, err := s.posts.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	if in.RepliedToID != nil && *in.RepliedToID != "" {
		parent, err := s.comments.GetByID(ctx, *in.RepliedToID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return nil, models.NewValidationError("repliedToId does not reference a comment")
			}
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("repliedToId belongs to a different post")
		}
	} else {
		in.RepliedToID = nil
	}

	comment := &models.Comment{
		PostID:      in.PostID,
		AuthorID:    in.CallerID,
		Content:     content,
		RepliedToID: in.RepliedToID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	items, err := s.summarize(ctx, []models.Comment{*comment}, in.CallerID)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Delete removes a comment. Only its author may do so.
func (s *CommentService) Delete(ctx context.Context, callerID, postID, commentID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.PostID != postID {
		return models.NewNotFoundError("Comment", commentID)
	}
	if comment.AuthorID != callerID {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	return s.comments.Delete(ctx, commentID)
}

func (s *CommentService) summarize(ctx context.Context, comments []models.Comment, callerID string) ([]models.CommentSummary, error) {
	if len(comments) == 0 {
		return []models.CommentSummary{}, nil
	}

	ids := make([]string, 0, len(comments))
	authorIDs := make([]string, 0, len(comments))
	seen := make(map[string]bool)
	for _, c := range comments {
		ids = append(ids, c.ID)
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}

	var (
		users  []models.User
		counts map[string]int64
		liked  = map[string]bool{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.GetByIDs(gctx, authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.reactions.CommentReactionCounts(gctx, ids)
		return err
	})
	if callerID != "" {
		g.Go(func() error {
			var err error
			liked, err = s.reactions.LikedCommentIDs(gctx, callerID, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	authors := make(map[string]models.Author, len(users))
	for _, u := range users {
		authors[u.ID] = authorOf(u)
	}

	out := make([]models.CommentSummary, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorID]
		if !ok {
			author = models.Author{ID: c.AuthorID}
		}
		out = append(out, models.CommentSummary{
			ID:                   c.ID,
			PostID:               c.PostID,
			Content:              c.Content,
			RepliedToID:          c.RepliedToID,
			Author:               author,
			ReactionCount:        counts[c.ID],
			IsLikedByCurrentUser: liked[c.ID],
			CreatedAt:            c.CreatedAt,
		})
	}
	return out, nil
}
