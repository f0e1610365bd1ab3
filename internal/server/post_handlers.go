package server

import (
	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postBody struct {
	Content   string               `json:"content"`
	Latitude  *float64             `json:"latitude"`
	Longitude *float64             `json:"longitude"`
	Address   *string              `json:"address"`
	Photos    []service.PhotoInput `json:"photos"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postBody
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		CallerID:  middleware.CallerID(c),
		Content:   req.Content,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
		Photos:    req.Photos,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.Get(c.UserContext(), postID, middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req postBody
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		CallerID:  middleware.CallerID(c),
		PostID:    postID,
		Content:   req.Content,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := s.postService.Delete(c.UserContext(), middleware.CallerID(c), postID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetPostReaction handles POST /api/posts/:id/reaction
func (s *Server) SetPostReaction(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	liked, err := parseToggle(c, "isLiked")
	if err != nil {
		return respondError(c, err)
	}

	state, err := s.interactionService.SetPostReaction(c.UserContext(), middleware.CallerID(c), postID, liked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isLiked": state})
}
