// Package service holds the business logic between the HTTP handlers and the repositories.
package service

import (
	"context"

	"geofeed/internal/models"
	"geofeed/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Paging bounds client-supplied page sizes.
type Paging struct {
	Default int
	Max     int
}

// DefaultPaging matches the feed defaults.
var DefaultPaging = Paging{Default: 10, Max: 50}

// Size clamps a requested page size; zero or negative means the default.
func (p Paging) Size(requested int) int {
	if requested <= 0 {
		return p.Default
	}
	if requested > p.Max {
		return p.Max
	}
	return requested
}

// postEnricher turns raw posts into summaries using one round trip per aggregate.
type postEnricher struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	reactions repository.ReactionRepository
}

func (e postEnricher) summarize(ctx context.Context, posts []models.Post, callerID string) ([]models.PostSummary, error) {
	if len(posts) == 0 {
		return []models.PostSummary{}, nil
	}

	postIDs := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	seenAuthor := make(map[string]bool, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !seenAuthor[p.AuthorID] {
			seenAuthor[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	var (
		authors        = make(map[string]models.Author, len(authorIDs))
		reactionCounts map[string]int64
		commentCounts  map[string]int64
		liked          = map[string]bool{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := e.users.GetByIDs(gctx, authorIDs)
		if err != nil {
			return err
		}
		for _, u := range users {
			authors[u.ID] = authorOf(u)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reactionCounts, err = e.reactions.PostReactionCounts(gctx, postIDs)
		return err
	})
	g.Go(func() error {
		var err error
		commentCounts, err = e.posts.CommentCounts(gctx, postIDs)
		return err
	})
	if callerID != "" {
		g.Go(func() error {
			var err error
			liked, err = e.reactions.LikedPostIDs(gctx, callerID, postIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			author = models.Author{ID: p.AuthorID}
		}
		photos := p.Photos
		if photos == nil {
			photos = []models.PostPhoto{}
		}
		out = append(out, models.PostSummary{
			ID:                   p.ID,
			Content:              p.Content,
			Latitude:             p.Latitude,
			Longitude:            p.Longitude,
			Address:              p.Address,
			Photos:               photos,
			Author:               author,
			ReactionCount:        reactionCounts[p.ID],
			CommentCount:         commentCounts[p.ID],
			IsLikedByCurrentUser: liked[p.ID],
			CreatedAt:            p.CreatedAt,
		})
	}
	return out, nil
}

func authorOf(u models.User) models.Author {
	return models.Author{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// validateCoordinates accepts either both coordinates or neither.
func validateCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return models.NewValidationError("latitude and longitude must be provided together")
	}
	if lat == nil {
		return nil
	}
	if !models.IsFinite(*lat) || !models.IsFinite(*lon) {
		return models.NewValidationError("latitude and longitude must be finite numbers")
	}
	if *lat < -90 || *lat > 90 {
		return models.NewValidationError("latitude must be between -90 and 90")
	}
	if *lon < -180 || *lon > 180 {
		return models.NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

func requireCaller(callerID string) error {
	if callerID == "" {
		return models.NewUnauthorizedError("authentication required")
	}
	return nil
}
