package repository

import (
	"context"
	"time"

	"geofeed/internal/cursor"
	"geofeed/internal/models"
	"geofeed/internal/observability"

	"gorm.io/gorm"
)

// TopQuery selects a page of the engagement-ranked feed.
type TopQuery struct {
	Since  time.Time
	Near   *GeoFilter
	Offset int
	Limit  int
}

// KeysetQuery selects a page of a (created_at DESC, id DESC) feed.
type KeysetQuery struct {
	// AuthorIDs restricts authors when non-empty.
	AuthorIDs []string
	After     *cursor.Anchor
	Near      *GeoFilter
	Limit     int
}

// PostUpdate carries the mutable post fields.
type PostUpdate struct {
	Content   string
	Latitude  *float64
	Longitude *float64
	Address   *string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, in PostUpdate) error
	Delete(ctx context.Context, id string) error
	ListTop(ctx context.Context, q TopQuery) ([]models.Post, error)
	ListKeyset(ctx context.Context, q KeysetQuery) ([]models.Post, error)
	CommentCounts(ctx context.Context, postIDs []string) (map[string]int64, error)
	RandomLocationWithPhotos(ctx context.Context) (*models.Location, error)
	LocationsByAuthor(ctx context.Context, authorID string) ([]models.PostLocation, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func preloadPhotos(db *gorm.DB) *gorm.DB {
	return db.Preload("Photos", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("User", post.AuthorID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := preloadPhotos(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
		return nil, findError(err, "Post", id)
	}
	return &post, nil
}

// Update never writes created_at, which is part of the feed sort key.
func (r *postRepository) Update(ctx context.Context, id string, in PostUpdate) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":    in.Content,
			"latitude":   in.Latitude,
			"longitude":  in.Longitude,
			"address":    in.Address,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ListTop ranks posts created since q.Since by reactions, then comments,
// then recency. id breaks the remaining ties so offsets are repeatable.
func (r *postRepository) ListTop(ctx context.Context, q TopQuery) ([]models.Post, error) {
	defer observability.TrackQuery("list_top", "posts")()

	db := preloadPhotos(r.db.WithContext(ctx)).
		Model(&models.Post{}).
		Select("posts.*, " +
			"(SELECT COUNT(*) FROM post_reactions pr WHERE pr.post_id = posts.id) AS reaction_count, " +
			"(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id) AS comment_count").
		Where("posts.created_at >= ?", q.Since.UTC())
	if q.Near != nil {
		db = db.Where(withinSQL("posts"), q.Near.args()...)
	}

	var posts []models.Post
	err := db.
		Order("reaction_count DESC, comment_count DESC, posts.created_at DESC, posts.id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListKeyset returns posts strictly after q.After in (created_at DESC, id DESC) order.
func (r *postRepository) ListKeyset(ctx context.Context, q KeysetQuery) ([]models.Post, error) {
	defer observability.TrackQuery("list_keyset", "posts")()

	db := preloadPhotos(r.db.WithContext(ctx)).Model(&models.Post{})
	if len(q.AuthorIDs) > 0 {
		db = db.Where("posts.author_id IN ?", q.AuthorIDs)
	}
	if q.After != nil {
		at := q.After.CreatedAt.UTC()
		db = db.Where("(posts.created_at < ? OR (posts.created_at = ? AND posts.id < ?))", at, at, q.After.ID)
	}
	if q.Near != nil {
		db = db.Where(withinSQL("posts"), q.Near.args()...)
	}

	var posts []models.Post
	err := db.
		Order("posts.created_at DESC, posts.id DESC").
		Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) CommentCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	if len(postIDs) == 0 {
		return map[string]int64{}, nil
	}

	var rows []idCount
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("post_id AS id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return countsByID(rows), nil
}

// RandomLocationWithPhotos picks the location of a random geotagged post that has photos.
func (r *postRepository) RandomLocationWithPhotos(ctx context.Context) (*models.Location, error) {
	var locs []models.Location
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.latitude AS lat, p.longitude AS lon
		FROM posts p
		WHERE p.latitude IS NOT NULL AND p.longitude IS NOT NULL
			AND EXISTS (SELECT 1 FROM post_photos ph WHERE ph.post_id = p.id)
		ORDER BY random()
		LIMIT 1`).
		Scan(&locs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(locs) == 0 {
		return nil, models.NewNotFoundError("Geotagged post", "any")
	}
	return &locs[0], nil
}

// LocationsByAuthor lists the author's geotagged posts, newest first.
func (r *postRepository) LocationsByAuthor(ctx context.Context, authorID string) ([]models.PostLocation, error) {
	var locs []models.PostLocation
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("id AS post_id, latitude AS lat, longitude AS lon, created_at").
		Where("author_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", authorID).
		Order("created_at DESC, id DESC").
		Scan(&locs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return locs, nil
}
