package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetHeatmap handles GET /api/geo/heatmap
func (s *Server) GetHeatmap(c *fiber.Ctx) error {
	box, err := parseBBox(c)
	if err != nil {
		return respondError(c, err)
	}
	zoom, err := parseZoom(c)
	if err != nil {
		return respondError(c, err)
	}

	points, err := s.geo.GetHeatmap(c.UserContext(), box, zoom)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(points)
}

// GetClusters handles GET /api/geo/clusters
func (s *Server) GetClusters(c *fiber.Ctx) error {
	clusters, err := s.geo.GetClusters(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(clusters)
}

// ReverseGeocode handles GET /api/geo/reverse
func (s *Server) ReverseGeocode(c *fiber.Ctx) error {
	lat, err := requiredFloat(c, "lat")
	if err != nil {
		return respondError(c, err)
	}
	lon, err := requiredFloat(c, "lon")
	if err != nil {
		return respondError(c, err)
	}

	place, err := s.geo.ReverseGeocode(c.UserContext(), lat, lon)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(place)
}

// GetDefaultLocation handles GET /api/geo/default
func (s *Server) GetDefaultLocation(c *fiber.Ctx) error {
	loc, err := s.geo.GetDefaultLocation(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loc)
}

// GetUserPostLocations handles GET /api/users/:id/post-locations
func (s *Server) GetUserPostLocations(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	locs, err := s.geo.GetUserPostLocations(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(locs)
}
