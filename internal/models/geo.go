package models

import (
	"fmt"
	"math"
	"time"
)

// BBox is a longitude/latitude envelope.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Validate checks ordering and coordinate ranges.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if !IsFinite(v) {
			return NewValidationError("bounding box coordinates must be finite numbers")
		}
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return NewValidationError("bounding box is outside valid coordinates")
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return NewValidationError("bounding box minimums must be below maximums")
	}
	return nil
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// HeatmapPoint is one aggregated heatmap cell.
type HeatmapPoint struct {
	Latitude  float64 `json:"lat" gorm:"column:lat"`
	Longitude float64 `json:"lon" gorm:"column:lon"`
	Count     int64   `json:"count" gorm:"column:count"`
}

// Cluster is a k-means group of geotagged posts. Latitude/Longitude is the
// medoid, a real post location; the centroid is the arithmetic mean.
type Cluster struct {
	ID                int     `json:"id" gorm:"column:cluster_id"`
	Latitude          float64 `json:"lat" gorm:"column:lat"`
	Longitude         float64 `json:"lon" gorm:"column:lon"`
	CentroidLatitude  float64 `json:"centroidLat" gorm:"column:centroid_lat"`
	CentroidLongitude float64 `json:"centroidLon" gorm:"column:centroid_lon"`
	Count             int64   `json:"count" gorm:"column:count"`
	Name              string  `json:"name" gorm:"-"`
}

// FallbackName labels a cluster when reverse geocoding fails.
func (c Cluster) FallbackName() string {
	return fmt.Sprintf("Cluster #%d", c.ID)
}

// Location is a bare coordinate pair.
type Location struct {
	Latitude  float64 `json:"lat" gorm:"column:lat"`
	Longitude float64 `json:"lon" gorm:"column:lon"`
}

// PostLocation is a geotagged post reduced to where and when.
type PostLocation struct {
	PostID    string    `json:"postId" gorm:"column:post_id"`
	Latitude  float64   `json:"lat" gorm:"column:lat"`
	Longitude float64   `json:"lon" gorm:"column:lon"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
}

// Place is a reverse-geocoded name.
type Place struct {
	Name string `json:"name"`
}
