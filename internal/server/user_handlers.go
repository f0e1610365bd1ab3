package server

import (
	"geofeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users?displayName=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, err := s.userService.Search(c.UserContext(), c.Query("displayName"), c.Query("cursor"), pageSize(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	profile, err := s.userService.GetProfile(c.UserContext(), userID, middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetRecommendedUsers handles GET /api/users/recommendations
func (s *Server) GetRecommendedUsers(c *fiber.Ctx) error {
	users, err := s.recommendations.GetRecommendedUsers(c.UserContext(), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// SetFollow handles POST /api/users/:id/follow
func (s *Server) SetFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	followed, err := parseToggle(c, "isFollowed")
	if err != nil {
		return respondError(c, err)
	}

	state, err := s.interactionService.SetFollow(c.UserContext(), middleware.CallerID(c), targetID, followed)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isFollowed": state})
}
