package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFeedEnv(t *testing.T) (*testEnv, *MockFeedProvider) {
	t.Helper()
	env := newTestEnv(t)
	feed := new(MockFeedProvider)
	env.server.feed = feed
	return env, feed
}

func TestGetFeed_PassesQueryThrough(t *testing.T) {
	env, feed := newFeedEnv(t)
	next := "5"
	feed.On("GetFeed", mock.Anything, mock.MatchedBy(func(in service.FeedInput) bool {
		return in.Strategy == models.FeedTop &&
			in.Cursor == "5" &&
			in.PageSize == 20 &&
			in.Latitude != nil && *in.Latitude == 48.85 &&
			in.Longitude != nil && *in.Longitude == 2.35 &&
			in.RadiusKm != nil && *in.RadiusKm == 3 &&
			in.AuthorID == "" &&
			in.CallerID == "caller-1"
	})).Return(&models.FeedPage{
		Items:      []models.PostSummary{{ID: "p1", Content: "hello"}},
		NextCursor: &next,
	}, nil).Once()

	var page models.FeedPage
	status := call(t, env.app, http.MethodGet,
		"/api/feed?strategy=top&cursor=5&pageSize=20&lat=48.85&lon=2.35&radiusKm=3", "caller-1", nil, &page)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p1", page.Items[0].ID)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "5", *page.NextCursor)
	feed.AssertExpectations(t)
}

func TestGetFeed_DefaultsToRecentAnonymously(t *testing.T) {
	env, feed := newFeedEnv(t)
	feed.On("GetFeed", mock.Anything, mock.MatchedBy(func(in service.FeedInput) bool {
		return in.Strategy == models.FeedRecent && in.CallerID == "" && in.Latitude == nil && in.AuthorID == "author-9"
	})).Return(&models.FeedPage{Items: []models.PostSummary{}}, nil).Once()

	var page models.FeedPage
	status := call(t, env.app, http.MethodGet, "/api/feed?authorId=author-9", "", nil, &page)

	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, page.Items)
	assert.Nil(t, page.NextCursor)
	feed.AssertExpectations(t)
}

func TestGetFeed_RejectsBadQuery(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unknown strategy", "/api/feed?strategy=hot"},
		{"non-numeric latitude", "/api/feed?lat=north&lon=2"},
		{"non-numeric radius", "/api/feed?lat=1&lon=2&radiusKm=far"},
		{"NaN latitude", "/api/feed?lat=NaN&lon=2"},
		{"infinite radius", "/api/feed?lat=1&lon=2&radiusKm=%2BInf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, feed := newFeedEnv(t)

			var body models.ErrorResponse
			status := call(t, env.app, http.MethodGet, tt.path, "", nil, &body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, models.CodeValidation, body.Code)
			feed.AssertNotCalled(t, "GetFeed", mock.Anything, mock.Anything)
		})
	}
}

func TestGetFeed_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", models.NewValidationError("radius must be positive"), http.StatusBadRequest},
		{"following without caller", models.NewUnauthorizedError("authentication required"), http.StatusUnauthorized},
		{"database failure", models.NewInternalError(errors.New("connection reset")), http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, feed := newFeedEnv(t)
			feed.On("GetFeed", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			status := call(t, env.app, http.MethodGet, "/api/feed?strategy=following", "", nil, nil)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestGetFeed_RecentOverSQLite(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "Ana")

	for _, content := range []string{"first", "second", "third"} {
		status := call(t, env.app, http.MethodPost, "/api/posts", author, fiber.Map{"content": content}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var first models.FeedPage
	status := call(t, env.app, http.MethodGet, "/api/feed?strategy=recent&pageSize=2", "", nil, &first)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)

	var second models.FeedPage
	status = call(t, env.app, http.MethodGet, "/api/feed?strategy=recent&pageSize=2&cursor="+url.QueryEscape(*first.NextCursor), "", nil, &second)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, second.Items, 1)
	assert.Nil(t, second.NextCursor)

	seen := map[string]bool{}
	for _, p := range append(first.Items, second.Items...) {
		assert.False(t, seen[p.ID], "post %s repeated", p.ID)
		seen[p.ID] = true
		assert.Equal(t, "Ana", p.Author.DisplayName)
	}

	status = call(t, env.app, http.MethodGet, "/api/feed?strategy=following", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
