package service

import (
	"context"

	"geofeed/internal/cursor"
	"geofeed/internal/models"
	"geofeed/internal/repository"
)

type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	paging  Paging
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, paging Paging) *UserService {
	return &UserService{users: users, follows: follows, paging: paging}
}

// GetProfile returns a user with follow counters. IsFollowedByMe is false for anonymous callers.
func (s *UserService) GetProfile(ctx context.Context, userID, callerID string) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	followers, following, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		Author:         authorOf(*user),
		FollowersCount: followers,
		FollowingCount: following,
		MemberSince:    user.CreatedAt,
	}
	if callerID != "" && callerID != userID {
		profile.IsFollowedByMe, err = s.follows.IsFollowing(ctx, callerID, userID)
		if err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// Search finds users by display name substring, most followed first, with
// an offset cursor.
func (s *UserService) Search(ctx context.Context, displayName, rawCursor string, pageSize int) (*models.UserPage, error) {
	size := s.paging.Size(pageSize)
	offset := cursor.DecodeOffset(rawCursor)

	items, err := s.users.Search(ctx, displayName, offset, size)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.UserListItem{}
	}

	page := &models.UserPage{Items: items}
	if len(items) == size {
		next := cursor.EncodeOffset(offset + size)
		page.NextCursor = &next
	}
	return page, nil
}
