package service

import (
	"context"
	"strconv"
	"time"

	"geofeed/internal/cursor"
	"geofeed/internal/models"
	"geofeed/internal/observability"
	"geofeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultRadiusKm = 10.0
	maxRadiusKm     = 20000.0
)

// FeedInput selects one page of a feed. Latitude, Longitude and RadiusKm
// are optional; the radius filter applies only when both coordinates are set.
type FeedInput struct {
	Strategy  models.FeedStrategy
	Cursor    string
	PageSize  int
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	AuthorID  string
	CallerID  string
}

// FeedService composes the top, following and recent feeds.
type FeedService struct {
	posts     repository.PostRepository
	follows   repository.FollowRepository
	enricher  postEnricher
	paging    Paging
	topWindow time.Duration
	now       func() time.Time
}

func NewFeedService(
	posts repository.PostRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	reactions repository.ReactionRepository,
	paging Paging,
	topWindow time.Duration,
) *FeedService {
	return &FeedService{
		posts:     posts,
		follows:   follows,
		enricher:  postEnricher{posts: posts, users: users, reactions: reactions},
		paging:    paging,
		topWindow: topWindow,
		now:       time.Now,
	}
}

// GetFeed returns one page of the requested strategy. A cursor that cannot
// be decoded is treated as absent and yields the first page.
func (s *FeedService) GetFeed(ctx context.Context, in FeedInput) (page *models.FeedPage, err error) {
	strategy := in.Strategy
	if strategy == "" {
		strategy = models.FeedRecent
	}

	ctx, span := observability.StartSpan(ctx, "FeedService.GetFeed",
		attribute.String("feed.strategy", string(strategy)),
		attribute.Bool("feed.has_cursor", in.Cursor != ""),
	)
	defer func() { observability.EndSpan(span, err) }()

	near, err := radiusFilter(in.Latitude, in.Longitude, in.RadiusKm)
	if err != nil {
		return nil, err
	}
	size := s.paging.Size(in.PageSize)

	var (
		posts []models.Post
		next  *string
	)
	switch strategy {
	case models.FeedTop:
		posts, next, err = s.top(ctx, in.Cursor, size, near)
	case models.FeedFollowing:
		if err := requireCaller(in.CallerID); err != nil {
			return nil, err
		}
		var followees []string
		followees, err = s.follows.FolloweeIDs(ctx, in.CallerID)
		if err != nil {
			return nil, err
		}
		if len(followees) == 0 {
			observability.FeedRequests.WithLabelValues(string(strategy)).Inc()
			return &models.FeedPage{Items: []models.PostSummary{}}, nil
		}
		posts, next, err = s.keyset(ctx, followees, in.Cursor, size, near)
	case models.FeedRecent:
		var authors []string
		if in.AuthorID != "" {
			authors = []string{in.AuthorID}
		}
		posts, next, err = s.keyset(ctx, authors, in.Cursor, size, near)
	default:
		return nil, models.NewValidationError("unknown feed strategy " + strconv.Quote(string(strategy)))
	}
	if err != nil {
		return nil, err
	}

	items, err := s.enricher.summarize(ctx, posts, in.CallerID)
	if err != nil {
		return nil, err
	}

	observability.FeedRequests.WithLabelValues(string(strategy)).Inc()
	observability.FeedPageItems.WithLabelValues(string(strategy)).Observe(float64(len(items)))

	return &models.FeedPage{Items: items, NextCursor: next}, nil
}

// top pages by offset. Rankings shift as reactions arrive, so concurrent
// writes can repeat or skip posts between pages.
func (s *FeedService) top(ctx context.Context, raw string, size int, near *repository.GeoFilter) ([]models.Post, *string, error) {
	offset := cursor.DecodeOffset(raw)
	posts, err := s.posts.ListTop(ctx, repository.TopQuery{
		Since:  s.now().Add(-s.topWindow),
		Near:   near,
		Offset: offset,
		Limit:  size,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(posts) < size {
		return posts, nil, nil
	}
	next := cursor.EncodeOffset(offset + size)
	return posts, &next, nil
}

func (s *FeedService) keyset(ctx context.Context, authors []string, raw string, size int, near *repository.GeoFilter) ([]models.Post, *string, error) {
	q := repository.KeysetQuery{AuthorIDs: authors, Near: near, Limit: size}
	if anchor, ok := cursor.DecodeAnchor(raw); ok {
		q.After = &anchor
	}

	posts, err := s.posts.ListKeyset(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	if len(posts) < size {
		return posts, nil, nil
	}
	last := posts[len(posts)-1]
	next := cursor.EncodeAnchor(last.CreatedAt, last.ID)
	return posts, &next, nil
}

// radiusFilter builds the optional distance filter. The radius defaults to
// 10 km once a center is given.
func radiusFilter(lat, lon, radiusKm *float64) (*repository.GeoFilter, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if lat == nil {
		return nil, nil
	}

	radius := defaultRadiusKm
	if radiusKm != nil {
		radius = *radiusKm
	}
	if !models.IsFinite(radius) || radius <= 0 || radius > maxRadiusKm {
		return nil, models.NewValidationError("radiusKm must be greater than 0 and at most 20000")
	}

	return &repository.GeoFilter{Latitude: *lat, Longitude: *lon, RadiusMeters: radius * 1000}, nil
}
