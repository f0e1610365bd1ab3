package repository

import (
	"context"
	"fmt"
	"strings"

	"geofeed/internal/models"
	"geofeed/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	Search(ctx context.Context, displayName string, offset, limit int) ([]models.UserListItem, error)
	TopByFollowers(ctx context.Context, exclude []string, limit int) ([]models.ScoredUser, error)
	NearbyPosters(ctx context.Context, points []models.Location, radiusMeters float64, exclude []string, limit int) ([]models.ScoredUser, error)
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, findError(err, "User", id)
	}
	return &user, nil
}

// GetByIDs loads the users in one round trip. Unknown ids are skipped.
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

type userListRow struct {
	ID             string `gorm:"column:id"`
	DisplayName    string `gorm:"column:display_name"`
	AvatarURL      string `gorm:"column:avatar_url"`
	FollowersCount int64  `gorm:"column:followers_count"`
}

// Search matches display names case-insensitively, most followed first.
func (r *userRepository) Search(ctx context.Context, displayName string, offset, limit int) ([]models.UserListItem, error) {
	var rows []userListRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id, u.display_name, u.avatar_url, COUNT(f.follower_id) AS followers_count
		FROM users u
		LEFT JOIN follows f ON f.followee_id = u.id
		WHERE LOWER(u.display_name) LIKE ? ESCAPE '\'
		GROUP BY u.id, u.display_name, u.avatar_url
		ORDER BY followers_count DESC, u.id ASC
		LIMIT ? OFFSET ?`, likePattern(displayName), limit, offset).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	items := make([]models.UserListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.UserListItem{
			Author:         models.Author{ID: row.ID, DisplayName: row.DisplayName, AvatarURL: row.AvatarURL},
			FollowersCount: row.FollowersCount,
		})
	}
	return items, nil
}

// TopByFollowers ranks users by follower count, then id.
func (r *userRepository) TopByFollowers(ctx context.Context, exclude []string, limit int) ([]models.ScoredUser, error) {
	defer observability.TrackQuery("top_by_followers", "users")()

	cond, args := notIn("u.id", exclude)
	args = append(args, limit)

	var rows []models.ScoredUser
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id AS user_id, u.display_name, u.avatar_url, COUNT(f.follower_id) AS score
		FROM users u
		LEFT JOIN follows f ON f.followee_id = u.id
		WHERE `+cond+`
		GROUP BY u.id, u.display_name, u.avatar_url
		ORDER BY score DESC, u.id ASC
		LIMIT ?`, args...).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// NearbyPosters counts, per author, the posts lying within radiusMeters of
// any of points. Each post counts once however many points it is near.
func (r *userRepository) NearbyPosters(ctx context.Context, points []models.Location, radiusMeters float64, exclude []string, limit int) ([]models.ScoredUser, error) {
	if len(points) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("nearby_posters", "posts")()

	values := make([]string, 0, len(points))
	args := make([]any, 0, len(points)*2+len(exclude)+2)
	for _, p := range points {
		values = append(values, "(CAST(? AS double precision), CAST(? AS double precision))")
		args = append(args, p.Longitude, p.Latitude)
	}
	args = append(args, radiusMeters)

	cond, excludeArgs := notIn("p.author_id", exclude)
	args = append(args, excludeArgs...)
	args = append(args, limit)

	query := fmt.Sprintf(`
		WITH caller_points(lon, lat) AS (VALUES %s)
		SELECT u.id AS user_id, u.display_name, u.avatar_url, COUNT(*) AS score
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.location IS NOT NULL
			AND EXISTS (
				SELECT 1 FROM caller_points cp
				WHERE ST_DWithin(p.location, ST_SetSRID(ST_MakePoint(cp.lon, cp.lat), 4326)::geography, ?)
			)
			AND %s
		GROUP BY u.id, u.display_name, u.avatar_url
		ORDER BY score DESC, u.id ASC
		LIMIT ?`, strings.Join(values, ", "), cond)

	var rows []models.ScoredUser
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
