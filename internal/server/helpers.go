package server

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError writes err with the status derived from its code and logs server-side failures.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			slog.Int("status", status),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// parseID reads a route parameter that must be a UUID.
func parseID(c *fiber.Ctx, param string) (string, error) {
	raw := c.Params(param)
	if _, err := uuid.Parse(raw); err != nil {
		return "", models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return raw, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// optionalFloat parses a float query parameter; absent means nil.
func optionalFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !models.IsFinite(v) {
		return nil, models.NewValidationError(name + " must be a number")
	}
	return &v, nil
}

func requiredFloat(c *fiber.Ctx, name string) (float64, error) {
	v, err := optionalFloat(c, name)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, models.NewValidationError(name + " is required")
	}
	return *v, nil
}

// pageSize reads pageSize; non-numeric values fall back to the service default.
func pageSize(c *fiber.Ctx) int {
	return c.QueryInt("pageSize", 0)
}

// parseBBox accepts bbox=minLon,minLat,maxLon,maxLat or the four bounds as
// separate parameters.
func parseBBox(c *fiber.Ctx) (models.BBox, error) {
	if raw := strings.TrimSpace(c.Query("bbox")); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) != 4 {
			return models.BBox{}, models.NewValidationError("bbox must be minLon,minLat,maxLon,maxLat")
		}
		var vals [4]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || !models.IsFinite(v) {
				return models.BBox{}, models.NewValidationError("bbox must contain four numbers")
			}
			vals[i] = v
		}
		return models.BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
	}

	var box models.BBox
	fields := []struct {
		name string
		dst  *float64
	}{
		{"minLon", &box.MinLon},
		{"minLat", &box.MinLat},
		{"maxLon", &box.MaxLon},
		{"maxLat", &box.MaxLat},
	}
	for _, f := range fields {
		v, err := requiredFloat(c, f.name)
		if err != nil {
			return models.BBox{}, models.NewValidationError("bbox or minLon, minLat, maxLon and maxLat are required")
		}
		*f.dst = v
	}
	return box, nil
}

func parseZoom(c *fiber.Ctx) (int, error) {
	raw := strings.TrimSpace(c.Query("zoom"))
	if raw == "" {
		return service.DefaultZoom, nil
	}
	zoom, err := strconv.Atoi(raw)
	if err != nil || zoom < 0 || zoom > 22 {
		return 0, models.NewValidationError("zoom must be an integer between 0 and 22")
	}
	return zoom, nil
}

// toggleBody is the payload of the like and follow endpoints.
type toggleBody struct {
	IsLiked    *bool `json:"isLiked"`
	IsFollowed *bool `json:"isFollowed"`
}

func parseToggle(c *fiber.Ctx, field string) (bool, error) {
	var body toggleBody
	if err := c.BodyParser(&body); err != nil {
		return false, models.NewValidationError("Invalid request body")
	}
	v := body.IsLiked
	if field == "isFollowed" {
		v = body.IsFollowed
	}
	if v == nil {
		return false, models.NewValidationError(field + " is required")
	}
	return *v, nil
}
