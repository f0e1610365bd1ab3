package server

import (
	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.commentService.List(c.UserContext(), postID, c.Query("cursor"), pageSize(c), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Content     string  `json:"content"`
		RepliedToID *string `json:"repliedToId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.Create(c.UserContext(), service.CreateCommentInput{
		CallerID:    middleware.CallerID(c),
		PostID:      postID,
		Content:     req.Content,
		RepliedToID: req.RepliedToID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return respondError(c, err)
	}

	if err := s.commentService.Delete(c.UserContext(), middleware.CallerID(c), postID, commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetCommentReaction handles POST /api/posts/:id/comments/:commentId/reaction
func (s *Server) SetCommentReaction(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return respondError(c, err)
	}
	liked, err := parseToggle(c, "isLiked")
	if err != nil {
		return respondError(c, err)
	}

	state, err := s.interactionService.SetCommentReaction(c.UserContext(), middleware.CallerID(c), postID, commentID, liked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"isLiked": state})
}
