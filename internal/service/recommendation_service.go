package service

import (
	"context"
	"sort"

	"geofeed/internal/models"
	"geofeed/internal/observability"
	"geofeed/internal/repository"
)

// TierRequest asks a tier for up to Need candidates outside Exclude.
type TierRequest struct {
	CallerID string
	Need     int
	Exclude  map[string]bool
}

// ExcludedIDs returns the exclusion set in a stable order.
func (r TierRequest) ExcludedIDs() []string {
	ids := make([]string, 0, len(r.Exclude))
	for id := range r.Exclude {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CandidateTier is one stage of the recommendation pipeline. Tiers run in
// order until the target size is reached.
type CandidateTier interface {
	Name() string
	Candidates(ctx context.Context, req TierRequest) ([]models.RecommendedUser, error)
}

// RecommendationService suggests users to follow.
type RecommendationService struct {
	follows repository.FollowRepository
	tiers   []CandidateTier
	limit   int
}

func NewRecommendationService(follows repository.FollowRepository, limit int, tiers ...CandidateTier) *RecommendationService {
	return &RecommendationService{follows: follows, tiers: tiers, limit: limit}
}

// GetRecommendedUsers never returns the caller, someone the caller already
// follows, or the same user twice.
func (s *RecommendationService) GetRecommendedUsers(ctx context.Context, callerID string) ([]models.RecommendedUser, error) {
	exclude := make(map[string]bool)
	if callerID != "" {
		exclude[callerID] = true
		followees, err := s.follows.FolloweeIDs(ctx, callerID)
		if err != nil {
			return nil, err
		}
		for _, id := range followees {
			exclude[id] = true
		}
	}

	out := make([]models.RecommendedUser, 0, s.limit)
	for _, tier := range s.tiers {
		need := s.limit - len(out)
		if need <= 0 {
			break
		}

		candidates, err := tier.Candidates(ctx, TierRequest{CallerID: callerID, Need: need, Exclude: exclude})
		if err != nil {
			return nil, err
		}

		added := 0
		for _, c := range candidates {
			if len(out) == s.limit {
				break
			}
			if c.UserID == "" || exclude[c.UserID] {
				continue
			}
			exclude[c.UserID] = true
			out = append(out, c)
			added++
		}
		observability.RecommendationCandidates.WithLabelValues(tier.Name()).Add(float64(added))
	}
	return out, nil
}

// LocationTier ranks users by how many of their posts lie near the caller's
// own post locations.
type LocationTier struct {
	posts        repository.PostRepository
	users        repository.UserRepository
	radiusMeters float64
}

func NewLocationTier(posts repository.PostRepository, users repository.UserRepository, radiusMeters float64) *LocationTier {
	return &LocationTier{posts: posts, users: users, radiusMeters: radiusMeters}
}

func (t *LocationTier) Name() string { return "location" }

func (t *LocationTier) Candidates(ctx context.Context, req TierRequest) ([]models.RecommendedUser, error) {
	if req.CallerID == "" || req.Need <= 0 {
		return nil, nil
	}

	locs, err := t.posts.LocationsByAuthor(ctx, req.CallerID)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	seen := make(map[models.Location]bool, len(locs))
	points := make([]models.Location, 0, len(locs))
	for _, l := range locs {
		p := models.Location{Latitude: l.Latitude, Longitude: l.Longitude}
		if !seen[p] {
			seen[p] = true
			points = append(points, p)
		}
	}

	rows, err := t.users.NearbyPosters(ctx, points, t.radiusMeters, req.ExcludedIDs(), req.Need)
	if err != nil {
		return nil, err
	}

	out := make([]models.RecommendedUser, 0, len(rows))
	for _, row := range rows {
		score := row.Score
		out = append(out, models.RecommendedUser{
			UserID:             row.UserID,
			DisplayName:        row.DisplayName,
			AvatarURL:          row.AvatarURL,
			SameLocationsCount: &score,
		})
	}
	return out, nil
}

// PopularityTier fills with the most followed users.
type PopularityTier struct {
	users repository.UserRepository
}

func NewPopularityTier(users repository.UserRepository) *PopularityTier {
	return &PopularityTier{users: users}
}

func (t *PopularityTier) Name() string { return "popularity" }

func (t *PopularityTier) Candidates(ctx context.Context, req TierRequest) ([]models.RecommendedUser, error) {
	if req.Need <= 0 {
		return nil, nil
	}

	rows, err := t.users.TopByFollowers(ctx, req.ExcludedIDs(), req.Need)
	if err != nil {
		return nil, err
	}

	out := make([]models.RecommendedUser, 0, len(rows))
	for _, row := range rows {
		score := row.Score
		out = append(out, models.RecommendedUser{
			UserID:         row.UserID,
			DisplayName:    row.DisplayName,
			AvatarURL:      row.AvatarURL,
			FollowersCount: &score,
		})
	}
	return out, nil
}
