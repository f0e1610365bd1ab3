// Package seed generates demo data for local development: users, geotagged
// posts scattered around a few city centers, follows, comments and likes.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"geofeed/internal/middleware"
	"geofeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// City is a center around which posts are scattered.
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// Cities are the default post hotspots.
var Cities = []City{
	{"Paris", 48.8566, 2.3522},
	{"Barcelona", 41.3874, 2.1686},
	{"Berlin", 52.5200, 13.4050},
	{"Lisbon", 38.7223, -9.1393},
	{"New York", 40.7128, -74.0060},
	{"Tokyo", 35.6762, 139.6503},
}

// Options controls how much data is generated.
type Options struct {
	Users int
	Posts int
	// MaxFollows bounds how many accounts each user follows.
	MaxFollows int
	// MaxLikes bounds likes per post.
	MaxLikes int
	// MaxComments bounds comments per post.
	MaxComments int
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
	// Jitter is the maximum offset in degrees from a city center.
	Jitter float64
	// Seed makes runs reproducible when non-zero.
	Seed int64
}

// DefaultOptions is a small, well-connected data set.
func DefaultOptions() Options {
	return Options{
		Users:       50,
		Posts:       200,
		MaxFollows:  8,
		MaxLikes:    6,
		MaxComments: 3,
		MaxDays:     30,
		Jitter:      0.05,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Posts     int
	Follows   int
	Comments  int
	Reactions int
}

// Seeder writes generated data through gorm.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	opts  Options
	now   time.Time
}

// NewSeeder creates a Seeder. Zero option fields fall back to DefaultOptions.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	def := DefaultOptions()
	if opts.Users <= 0 {
		opts.Users = def.Users
	}
	if opts.Posts < 0 {
		opts.Posts = 0
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = def.MaxDays
	}
	if opts.Jitter <= 0 {
		opts.Jitter = def.Jitter
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, faker: gofakeit.New(seed), opts: opts, now: time.Now().UTC()}
}

// ClearAll removes every row the seeder can create, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"comment_reactions", "post_reactions", "comments", "post_photos", "follows", "posts", "users"}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	middleware.Logger.Info("cleared seed tables")
	return nil
}

// Run generates the full data set.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	sum := &Summary{}

	users := s.buildUsers()
	if err := db.CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	sum.Users = len(users)

	posts := s.buildPosts(users)
	if len(posts) > 0 {
		if err := db.CreateInBatches(posts, 100).Error; err != nil {
			return nil, fmt.Errorf("create posts: %w", err)
		}
	}
	sum.Posts = len(posts)

	follows := s.buildFollows(users)
	if len(follows) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(follows, 200).Error; err != nil {
			return nil, fmt.Errorf("create follows: %w", err)
		}
	}
	sum.Follows = len(follows)

	comments := s.buildComments(users, posts)
	if len(comments) > 0 {
		if err := db.CreateInBatches(comments, 200).Error; err != nil {
			return nil, fmt.Errorf("create comments: %w", err)
		}
	}
	sum.Comments = len(comments)

	reactions := s.buildReactions(users, posts)
	if len(reactions) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(reactions, 200).Error; err != nil {
			return nil, fmt.Errorf("create reactions: %w", err)
		}
	}
	sum.Reactions = len(reactions)

	middleware.Logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("comments", sum.Comments),
		slog.Int("reactions", sum.Reactions),
	)
	return sum, nil
}

func (s *Seeder) buildUsers() []*models.User {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		users = append(users, &models.User{
			ID:          s.faker.UUID(),
			DisplayName: s.faker.Name(),
			Email:       fmt.Sprintf("seed%03d.%s", i, s.faker.Email()),
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%d", i),
			CreatedAt:   s.past(),
		})
	}
	return users
}

// buildPosts leaves every fifth post without a location; every third one has a photo.
func (s *Seeder) buildPosts(users []*models.User) []*models.Post {
	posts := make([]*models.Post, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		author := users[s.faker.IntRange(0, len(users)-1)]
		post := &models.Post{
			ID:        s.faker.UUID(),
			AuthorID:  author.ID,
			Content:   s.faker.Sentence(s.faker.IntRange(5, 20)),
			CreatedAt: s.past(),
		}
		if i%5 != 4 {
			city := Cities[s.faker.IntRange(0, len(Cities)-1)]
			lat := city.Lat + s.faker.Float64Range(-s.opts.Jitter, s.opts.Jitter)
			lon := city.Lon + s.faker.Float64Range(-s.opts.Jitter, s.opts.Jitter)
			addr := city.Name
			post.Latitude, post.Longitude, post.Address = &lat, &lon, &addr
		}
		if i%3 == 0 {
			post.Photos = []models.PostPhoto{{
				URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID()),
				PublicID: fmt.Sprintf("seed/%d", i),
			}}
		}
		posts = append(posts, post)
	}
	return posts
}

func (s *Seeder) buildFollows(users []*models.User) []*models.Follow {
	if len(users) < 2 || s.opts.MaxFollows <= 0 {
		return nil
	}
	var follows []*models.Follow
	for i, u := range users {
		for _, j := range s.pick(len(users), s.faker.IntRange(0, s.opts.MaxFollows), i) {
			follows = append(follows, &models.Follow{FollowerID: u.ID, FolloweeID: users[j].ID})
		}
	}
	return follows
}

func (s *Seeder) buildComments(users []*models.User, posts []*models.Post) []*models.Comment {
	if s.opts.MaxComments <= 0 {
		return nil
	}
	var comments []*models.Comment
	for _, p := range posts {
		n := s.faker.IntRange(0, s.opts.MaxComments)
		for k := 0; k < n; k++ {
			comments = append(comments, &models.Comment{
				ID:        s.faker.UUID(),
				PostID:    p.ID,
				AuthorID:  users[s.faker.IntRange(0, len(users)-1)].ID,
				Content:   s.faker.Sentence(s.faker.IntRange(3, 12)),
				CreatedAt: p.CreatedAt.Add(time.Duration(k+1) * time.Minute),
			})
		}
	}
	return comments
}

func (s *Seeder) buildReactions(users []*models.User, posts []*models.Post) []*models.PostReaction {
	if s.opts.MaxLikes <= 0 {
		return nil
	}
	var reactions []*models.PostReaction
	for _, p := range posts {
		for _, j := range s.pick(len(users), s.faker.IntRange(0, s.opts.MaxLikes), -1) {
			reactions = append(reactions, &models.PostReaction{PostID: p.ID, UserID: users[j].ID})
		}
	}
	return reactions
}

// pick returns up to n distinct indexes below size, never skip.
func (s *Seeder) pick(size, n, skip int) []int {
	seen := make(map[int]bool, n)
	out := make([]int, 0, n)
	order := indexes(size)
	s.faker.ShuffleInts(order)
	for _, j := range order {
		if len(out) == n {
			break
		}
		if j == skip || seen[j] {
			continue
		}
		seen[j] = true
		out = append(out, j)
	}
	return out
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (s *Seeder) past() time.Time {
	back := time.Duration(s.faker.IntRange(0, s.opts.MaxDays*24*60)) * time.Minute
	return s.now.Add(-back)
}
