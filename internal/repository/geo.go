package repository

import (
	"context"
	"fmt"

	"geofeed/internal/models"
	"geofeed/internal/observability"

	"gorm.io/gorm"
)

// GeoRepository runs the spatial aggregations over geotagged posts.
type GeoRepository interface {
	// Heatmap buckets posts inside box into square cells of cellSize degrees.
	// With smoothed set each cell reports the mean position of its posts,
	// otherwise the grid-aligned cell origin.
	Heatmap(ctx context.Context, box models.BBox, cellSize float64, smoothed bool) ([]models.HeatmapPoint, error)
	// Clusters groups all geotagged posts into at most k k-means clusters.
	Clusters(ctx context.Context, k int) ([]models.Cluster, error)
}

type geoRepository struct {
	db *gorm.DB
}

// NewGeoRepository creates a new geo repository
func NewGeoRepository(db *gorm.DB) GeoRepository {
	return &geoRepository{db: db}
}

const heatmapSQL = `
	SELECT %s AS lat, %s AS lon, g.count
	FROM (
		SELECT ST_SnapToGrid(p.location::geometry, ?) AS cell,
			AVG(p.latitude) AS avg_lat,
			AVG(p.longitude) AS avg_lon,
			COUNT(*) AS count
		FROM posts p
		WHERE p.location IS NOT NULL
			AND p.location::geometry && ST_MakeEnvelope(?, ?, ?, ?, 4326)
		GROUP BY cell
	) g
	ORDER BY g.count DESC, lat, lon`

func (r *geoRepository) Heatmap(ctx context.Context, box models.BBox, cellSize float64, smoothed bool) ([]models.HeatmapPoint, error) {
	defer observability.TrackQuery("heatmap", "posts")()

	latExpr, lonExpr := "ST_Y(g.cell)", "ST_X(g.cell)"
	if smoothed {
		latExpr, lonExpr = "g.avg_lat", "g.avg_lon"
	}

	var points []models.HeatmapPoint
	err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(heatmapSQL, latExpr, lonExpr), cellSize, box.MinLon, box.MinLat, box.MaxLon, box.MaxLat).
		Scan(&points).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return points, nil
}

// clustersSQL picks, per cluster, the member nearest the centroid as its medoid.
const clustersSQL = `
	WITH clustered AS (
		SELECT p.id, p.latitude, p.longitude, p.location::geometry AS geom,
			ST_ClusterKMeans(p.location::geometry, ?) OVER () AS cluster_id
		FROM posts p
		WHERE p.location IS NOT NULL
	),
	centroids AS (
		SELECT cluster_id,
			COUNT(*) AS count,
			AVG(latitude) AS centroid_lat,
			AVG(longitude) AS centroid_lon,
			ST_SetSRID(ST_MakePoint(AVG(longitude), AVG(latitude)), 4326) AS center
		FROM clustered
		GROUP BY cluster_id
	),
	medoids AS (
		SELECT DISTINCT ON (c.cluster_id) c.cluster_id, c.latitude AS lat, c.longitude AS lon
		FROM clustered c
		JOIN centroids ct ON ct.cluster_id = c.cluster_id
		ORDER BY c.cluster_id, ST_Distance(c.geom, ct.center), c.id
	)
	SELECT m.cluster_id, m.lat, m.lon, ct.centroid_lat, ct.centroid_lon, ct.count
	FROM medoids m
	JOIN centroids ct ON ct.cluster_id = m.cluster_id
	ORDER BY ct.count DESC, m.cluster_id ASC`

func (r *geoRepository) Clusters(ctx context.Context, k int) ([]models.Cluster, error) {
	defer observability.TrackQuery("clusters", "posts")()

	var clusters []models.Cluster
	if err := r.db.WithContext(ctx).Raw(clustersSQL, k).Scan(&clusters).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return clusters, nil
}
