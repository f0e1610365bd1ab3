package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geofeed/internal/cache"
	"geofeed/internal/geocoding"
	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/observability"
	"geofeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// DefaultZoom is used when a heatmap request carries no zoom.
const DefaultZoom = 6

// smoothZoom is the first zoom level that reports per-cell mean positions.
const smoothZoom = 6

// errPacingDeadline means the next geocoding slot lies beyond the caller's deadline.
var errPacingDeadline = fmt.Errorf("geocode pacing: %w", context.DeadlineExceeded)

// CellSizeForZoom maps a map zoom level to a grid cell size in degrees.
func CellSizeForZoom(zoom int) float64 {
	switch {
	case zoom <= 5:
		return 0.5
	case zoom <= 8:
		return 0.2
	case zoom <= 12:
		return 0.05
	default:
		return 0.01
	}
}

// GeoConfig tunes clustering and geocoder pacing.
type GeoConfig struct {
	ClusterCount int
	ClusterTTL   time.Duration
	// GeocodeDelay is the minimum spacing between upstream geocoding calls.
	GeocodeDelay time.Duration
}

// GeoService serves heatmaps, named clusters and location lookups.
type GeoService struct {
	geo      repository.GeoRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	geocoder geocoding.Geocoder
	store    cache.Store
	limiter  *rate.Limiter
	cfg      GeoConfig
}

func NewGeoService(
	geo repository.GeoRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	geocoder geocoding.Geocoder,
	store cache.Store,
	cfg GeoConfig,
) *GeoService {
	if cfg.ClusterCount <= 0 {
		cfg.ClusterCount = 10
	}
	if cfg.ClusterTTL <= 0 {
		cfg.ClusterTTL = cache.ClustersTTL
	}
	if store == nil {
		store = cache.NoopStore{}
	}

	limit := rate.Inf
	if cfg.GeocodeDelay > 0 {
		limit = rate.Every(cfg.GeocodeDelay)
	}

	return &GeoService{
		geo:      geo,
		posts:    posts,
		users:    users,
		geocoder: geocoder,
		store:    store,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
	}
}

// GetHeatmap aggregates posts inside box into grid cells sized for zoom.
func (s *GeoService) GetHeatmap(ctx context.Context, box models.BBox, zoom int) ([]models.HeatmapPoint, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}

	points, err := s.geo.Heatmap(ctx, box, CellSizeForZoom(zoom), zoom >= smoothZoom)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.HeatmapPoint{}
	}
	return points, nil
}

// GetClusters returns the named post clusters, largest first. A cache miss
// recomputes inline; concurrent misses each recompute and store the same result.
func (s *GeoService) GetClusters(ctx context.Context) (clusters []models.Cluster, err error) {
	ctx, span := observability.StartSpan(ctx, "GeoService.GetClusters")
	defer func() { observability.EndSpan(span, err) }()

	var cached []models.Cluster
	found, err := s.store.Get(ctx, cache.PostClustersKey, &cached)
	switch {
	case err != nil:
		observability.ClusterCacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cluster cache read failed", slog.String("error", err.Error()))
	case found:
		observability.ClusterCacheLookups.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	default:
		observability.ClusterCacheLookups.WithLabelValues("miss").Inc()
	}

	clusters, err = s.geo.Clusters(ctx, s.cfg.ClusterCount)
	if err != nil {
		return nil, err
	}
	if clusters == nil {
		clusters = []models.Cluster{}
	}

	for i := range clusters {
		name, err := s.placeName(ctx, clusters[i].Latitude, clusters[i].Longitude)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, errPacingDeadline) {
				return nil, err
			}
			middleware.Logger.DebugContext(ctx, "cluster naming fell back",
				slog.Int("cluster_id", clusters[i].ID),
				slog.String("error", err.Error()),
			)
			name = clusters[i].FallbackName()
		}
		clusters[i].Name = name
	}

	if err := s.store.Set(ctx, cache.PostClustersKey, clusters, s.cfg.ClusterTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "cluster cache write failed", slog.String("error", err.Error()))
	}
	return clusters, nil
}

// placeName waits for the pacing limiter, then asks the geocoder. An
// unconfigured geocoder fails fast without taking a pacing slot.
func (s *GeoService) placeName(ctx context.Context, lat, lon float64) (string, error) {
	if !geocoding.IsConfigured(s.geocoder) {
		return "", geocoding.ErrNotConfigured
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errPacingDeadline
	}
	return s.geocoder.ReversePlace(ctx, lat, lon)
}

// ReverseGeocode names a single coordinate. Unlike cluster naming, failure
// here is the whole answer and is reported to the caller.
func (s *GeoService) ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Place, error) {
	if err := validateCoordinates(&lat, &lon); err != nil {
		return nil, err
	}

	name, err := s.placeName(ctx, lat, lon)
	switch {
	case err == nil:
		return &models.Place{Name: name}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, errPacingDeadline):
		return nil, err
	case errors.Is(err, geocoding.ErrNoPlace):
		return nil, models.NewNotFoundError("Place", fmt.Sprintf("%g,%g", lat, lon))
	default:
		return nil, models.NewUpstreamError("geocoder", err)
	}
}

// GetDefaultLocation suggests where to center a map for a new visitor.
func (s *GeoService) GetDefaultLocation(ctx context.Context) (*models.Location, error) {
	return s.posts.RandomLocationWithPhotos(ctx)
}

// GetUserPostLocations lists where a user has posted, newest first.
func (s *GeoService) GetUserPostLocations(ctx context.Context, userID string) ([]models.PostLocation, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	locs, err := s.posts.LocationsByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if locs == nil {
		locs = []models.PostLocation{}
	}
	return locs, nil
}
