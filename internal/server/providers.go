package server

import (
	"context"

	"geofeed/internal/models"
	"geofeed/internal/service"
)

// FeedProvider composes feed pages.
type FeedProvider interface {
	GetFeed(ctx context.Context, in service.FeedInput) (*models.FeedPage, error)
}

// GeoProvider serves the spatial read endpoints.
type GeoProvider interface {
	GetHeatmap(ctx context.Context, box models.BBox, zoom int) ([]models.HeatmapPoint, error)
	GetClusters(ctx context.Context) ([]models.Cluster, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Place, error)
	GetDefaultLocation(ctx context.Context) (*models.Location, error)
	GetUserPostLocations(ctx context.Context, userID string) ([]models.PostLocation, error)
}

// Recommender suggests users to follow.
type Recommender interface {
	GetRecommendedUsers(ctx context.Context, callerID string) ([]models.RecommendedUser, error)
}

var (
	_ FeedProvider = (*service.FeedService)(nil)
	_ GeoProvider  = (*service.GeoService)(nil)
	_ Recommender  = (*service.RecommendationService)(nil)
)
