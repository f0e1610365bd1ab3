package server

import (
	"context"

	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockFeedProvider struct {
	mock.Mock
}

func (m *MockFeedProvider) GetFeed(ctx context.Context, in service.FeedInput) (*models.FeedPage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedPage), args.Error(1)
}

type MockGeoProvider struct {
	mock.Mock
}

func (m *MockGeoProvider) GetHeatmap(ctx context.Context, box models.BBox, zoom int) ([]models.HeatmapPoint, error) {
	args := m.Called(ctx, box, zoom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HeatmapPoint), args.Error(1)
}

func (m *MockGeoProvider) GetClusters(ctx context.Context) ([]models.Cluster, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cluster), args.Error(1)
}

func (m *MockGeoProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Place, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Place), args.Error(1)
}

func (m *MockGeoProvider) GetDefaultLocation(ctx context.Context) (*models.Location, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockGeoProvider) GetUserPostLocations(ctx context.Context, userID string) ([]models.PostLocation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PostLocation), args.Error(1)
}

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) GetRecommendedUsers(ctx context.Context, callerID string) ([]models.RecommendedUser, error) {
	args := m.Called(ctx, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecommendedUser), args.Error(1)
}
