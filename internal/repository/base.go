// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"geofeed/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgForeignKeyViolation = "23503"

// GeoFilter restricts posts to a radius around a point.
type GeoFilter struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// withinSQL is the radius predicate for a posts row aliased as table.
func withinSQL(table string) string {
	return "ST_DWithin(" + table + ".location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)"
}

func (g *GeoFilter) args() []any {
	return []any{g.Longitude, g.Latitude, g.RadiusMeters}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// findError maps a lookup failure to NotFound or Internal.
func findError(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// notIn returns a NOT IN clause for ids, or an always-true clause when ids is
// empty, because an empty IN list renders as (NULL) and would match nothing.
func notIn(column string, ids []string) (string, []any) {
	if len(ids) == 0 {
		return "1 = 1", nil
	}
	return column + " NOT IN ?", []any{ids}
}

// likePattern turns free text into a case-insensitive substring pattern.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

type idCount struct {
	ID    string `gorm:"column:id"`
	Count int64  `gorm:"column:count"`
}

func countsByID(rows []idCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out
}

func idSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
