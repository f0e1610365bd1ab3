package service

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"geofeed/internal/models"
	"geofeed/internal/repository"
)

const (
	maxPostContentLen = 5000
	maxPostPhotos     = 10
)

type PostService struct {
	posts    repository.PostRepository
	enricher postEnricher
}

// PhotoInput references an image already stored by the media service.
type PhotoInput struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type CreatePostInput struct {
	CallerID  string
	Content   string
	Latitude  *float64
	Longitude *float64
	Address   *string
	Photos    []PhotoInput
}

type UpdatePostInput struct {
	CallerID  string
	PostID    string
	Content   string
	Latitude  *float64
	Longitude *float64
	Address   *string
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	reactions repository.ReactionRepository,
) *PostService {
	return &PostService{
		posts:    posts,
		enricher: postEnricher{posts: posts, users: users, reactions: reactions},
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.PostSummary, error) {
	if err := requireCaller(in.CallerID); err != nil {
		return nil, err
	}
	content, err := validatePostBody(in.Content, in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}
	if len(in.Photos) > maxPostPhotos {
		return nil, models.NewValidationError("Too many photos (max 10)")
	}

	post := &models.Post{
		AuthorID:  in.CallerID,
		Content:   content,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Address:   normalizeAddress(in.Address),
	}
	for i, p := range in.Photos {
		if _, err := url.ParseRequestURI(p.URL); err != nil {
			return nil, models.NewValidationError("photo url must be a valid URL")
		}
		post.Photos = append(post.Photos, models.PostPhoto{URL: p.URL, PublicID: p.PublicID, Position: i})
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.summary(ctx, *post, in.CallerID)
}

func (s *PostService) Get(ctx context.Context, postID, callerID string) (*models.PostSummary, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, *post, callerID)
}

// Update replaces content, address and location. The author is the only
// one allowed to edit; created_at never changes.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.PostSummary, error) {
	if err := requireCaller(in.CallerID); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.CallerID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	content, err := validatePostBody(in.Content, in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	err = s.posts.Update(ctx, in.PostID, repository.PostUpdate{
		Content:   content,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Address:   normalizeAddress(in.Address),
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, in.PostID, in.CallerID)
}

func (s *PostService) Delete(ctx context.Context, callerID, postID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.posts.Delete(ctx, postID)
}

func (s *PostService) summary(ctx context.Context, post models.Post, callerID string) (*models.PostSummary, error) {
	items, err := s.enricher.summarize(ctx, []models.Post{post}, callerID)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func validatePostBody(content string, lat, lon *float64) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxPostContentLen {
		return "", models.NewValidationError("Content too long (max 5000 characters)")
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return "", err
	}
	return content, nil
}

func normalizeAddress(addr *string) *string {
	if addr == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*addr)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
