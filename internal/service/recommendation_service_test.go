package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"geofeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTier returns fixed candidates and records the requests it saw.
type scriptedTier struct {
	name       string
	candidates []models.RecommendedUser
	err        error
	requests   []TierRequest
}

func (t *scriptedTier) Name() string { return t.name }

func (t *scriptedTier) Candidates(_ context.Context, req TierRequest) ([]models.RecommendedUser, error) {
	snapshot := TierRequest{CallerID: req.CallerID, Need: req.Need, Exclude: map[string]bool{}}
	for id := range req.Exclude {
		snapshot.Exclude[id] = true
	}
	t.requests = append(t.requests, snapshot)
	return t.candidates, t.err
}

func candidates(ids ...string) []models.RecommendedUser {
	out := make([]models.RecommendedUser, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.RecommendedUser{UserID: id})
	}
	return out
}

func recommendedIDs(users []models.RecommendedUser) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.UserID)
	}
	return out
}

// recommendationWorld: "me" posted in Paris and follows "friend".
// "local" and "neighbor" posted near Paris, "faraway" in Tokyo.
// "celebrity" has the most followers.
func recommendationWorld() *repos {
	r := newRepos()
	for _, id := range []string{"me", "friend", "local", "neighbor", "faraway", "celebrity", "fan1", "fan2"} {
		r.w.addUser(id, id)
	}
	r.w.follow("me", "friend")
	r.w.follow("fan1", "celebrity")
	r.w.follow("fan2", "celebrity")
	r.w.follow("fan1", "faraway")

	r.w.addGeoPost("m1", "me", feedNow, 48.8566, 2.3522)
	r.w.addGeoPost("m2", "me", feedNow.Add(-time.Hour), 48.8566, 2.3522)
	r.w.addGeoPost("l1", "local", feedNow, 48.8570, 2.3530)
	r.w.addGeoPost("l2", "local", feedNow, 48.8580, 2.3500)
	r.w.addGeoPost("n1", "neighbor", feedNow, 48.8600, 2.3400)
	r.w.addGeoPost("f1", "friend", feedNow, 48.8566, 2.3522)
	r.w.addGeoPost("t1", "faraway", feedNow, 35.6762, 139.6503)
	return r
}

func newTestRecommendations(r *repos, limit int) *RecommendationService {
	return NewRecommendationService(r.follows, limit,
		NewLocationTier(r.posts, r.users, 5000),
		NewPopularityTier(r.users),
	)
}

func TestRecommendationService_LocationFirstThenPopularity(t *testing.T) {
	r := recommendationWorld()
	s := newTestRecommendations(r, 4)

	got, err := s.GetRecommendedUsers(context.Background(), "me")
	require.NoError(t, err)

	assert.Equal(t, []string{"local", "neighbor", "celebrity", "faraway"}, recommendedIDs(got))

	require.NotNil(t, got[0].SameLocationsCount)
	assert.Equal(t, int64(2), *got[0].SameLocationsCount)
	assert.Nil(t, got[0].FollowersCount)

	require.NotNil(t, got[2].FollowersCount)
	assert.Equal(t, int64(2), *got[2].FollowersCount)
	assert.Nil(t, got[2].SameLocationsCount)
}

func TestRecommendationService_NeverSuggestsSelfOrFollowees(t *testing.T) {
	r := recommendationWorld()
	s := newTestRecommendations(r, 20)

	got, err := s.GetRecommendedUsers(context.Background(), "me")
	require.NoError(t, err)

	ids := recommendedIDs(got)
	assert.NotContains(t, ids, "me")
	assert.NotContains(t, ids, "friend")
	assert.Len(t, ids, 6)

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestRecommendationService_AnonymousGetsPopularityOnly(t *testing.T) {
	r := recommendationWorld()
	s := newTestRecommendations(r, 2)

	got, err := s.GetRecommendedUsers(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"celebrity", "faraway"}, recommendedIDs(got))
	assert.Zero(t, r.w.callCount("NearbyPosters"))
	assert.Zero(t, r.w.callCount("FolloweeIDs"))
}

func TestRecommendationService_CallerWithoutLocations(t *testing.T) {
	r := recommendationWorld()
	r.w.addUser("newbie", "newbie")
	s := newTestRecommendations(r, 1)

	got, err := s.GetRecommendedUsers(context.Background(), "newbie")
	require.NoError(t, err)

	assert.Equal(t, []string{"celebrity"}, recommendedIDs(got))
	assert.Zero(t, r.w.callCount("NearbyPosters"))
}

func TestRecommendationService_StopsOnceFull(t *testing.T) {
	r := recommendationWorld()
	s := newTestRecommendations(r, 2)

	got, err := s.GetRecommendedUsers(context.Background(), "me")
	require.NoError(t, err)

	assert.Equal(t, []string{"local", "neighbor"}, recommendedIDs(got))
	assert.Zero(t, r.w.callCount("TopByFollowers"))
}

func TestRecommendationService_FiltersMisbehavingTiers(t *testing.T) {
	r := newRepos()
	r.w.follow("me", "friend")
	first := &scriptedTier{name: "first", candidates: candidates("a", "me", "a", "friend", "", "b")}
	second := &scriptedTier{name: "second", candidates: candidates("b", "c", "d", "e")}
	s := NewRecommendationService(r.follows, 4, first, second)

	got, err := s.GetRecommendedUsers(context.Background(), "me")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, recommendedIDs(got))

	require.Len(t, first.requests, 1)
	assert.Equal(t, 4, first.requests[0].Need)
	assert.Equal(t, []string{"friend", "me"}, first.requests[0].ExcludedIDs())

	require.Len(t, second.requests, 1)
	assert.Equal(t, 2, second.requests[0].Need)
	assert.Equal(t, []string{"a", "b", "friend", "me"}, second.requests[0].ExcludedIDs())
}

func TestRecommendationService_TierErrorPropagates(t *testing.T) {
	r := newRepos()
	boom := errors.New("query timeout")
	s := NewRecommendationService(r.follows, 5,
		&scriptedTier{name: "ok", candidates: candidates("a")},
		&scriptedTier{name: "broken", err: boom},
	)

	_, err := s.GetRecommendedUsers(context.Background(), "me")

	require.ErrorIs(t, err, boom)
}

func TestRecommendationService_EmptyResultIsNotNil(t *testing.T) {
	r := newRepos()
	r.w.addUser("me", "me")
	s := newTestRecommendations(r, 5)

	got, err := s.GetRecommendedUsers(context.Background(), "me")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
