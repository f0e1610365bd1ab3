package server

import (
	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	strategy, ok := models.ParseFeedStrategy(c.Query("strategy"))
	if !ok {
		return respondError(c, models.NewValidationError("strategy must be one of top, following, recent"))
	}

	lat, err := optionalFloat(c, "lat")
	if err != nil {
		return respondError(c, err)
	}
	lon, err := optionalFloat(c, "lon")
	if err != nil {
		return respondError(c, err)
	}
	radius, err := optionalFloat(c, "radiusKm")
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.feed.GetFeed(c.UserContext(), service.FeedInput{
		Strategy:  strategy,
		Cursor:    c.Query("cursor"),
		PageSize:  pageSize(c),
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  radius,
		AuthorID:  c.Query("authorId"),
		CallerID:  middleware.CallerID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}
