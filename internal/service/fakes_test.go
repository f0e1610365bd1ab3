package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"geofeed/internal/cursor"
	"geofeed/internal/models"
	"geofeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWorld is an in-memory stand-in for the database shared by the fake repositories.
type memWorld struct {
	mu           sync.Mutex
	users        map[string]models.User
	posts        []models.Post
	comments     []models.Comment
	postLikes    map[[2]string]bool
	commentLikes map[[2]string]bool
	follows      map[[2]string]bool
	seq          int

	failOn        map[string]error
	calls         map[string]int
	topQueries    []repository.TopQuery
	keysetQueries []repository.KeysetQuery
}

func newWorld() *memWorld {
	return &memWorld{
		users:        map[string]models.User{},
		postLikes:    map[[2]string]bool{},
		commentLikes: map[[2]string]bool{},
		follows:      map[[2]string]bool{},
		failOn:       map[string]error{},
		calls:        map[string]int{},
	}
}

// enter locks the world, records the call and returns any injected failure.
func (w *memWorld) enter(method string) error {
	w.mu.Lock()
	w.calls[method]++
	return w.failOn[method]
}

func (w *memWorld) callCount(method string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[method]
}

func (w *memWorld) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%03d", prefix, w.seq)
}

func (w *memWorld) addUser(id, name string) {
	w.users[id] = models.User{ID: id, DisplayName: name, CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (w *memWorld) addPost(id, authorID string, createdAt time.Time) *models.Post {
	w.posts = append(w.posts, models.Post{ID: id, AuthorID: authorID, Content: "post " + id, CreatedAt: createdAt})
	return &w.posts[len(w.posts)-1]
}

func (w *memWorld) addGeoPost(id, authorID string, createdAt time.Time, lat, lon float64) {
	p := w.addPost(id, authorID, createdAt)
	p.Latitude, p.Longitude = &lat, &lon
}

func (w *memWorld) like(userID, postID string) {
	w.postLikes[[2]string{userID, postID}] = true
}

func (w *memWorld) follow(followerID, followeeID string) {
	w.follows[[2]string{followerID, followeeID}] = true
}

func (w *memWorld) reactionCount(postID string) int64 {
	var n int64
	for k := range w.postLikes {
		if k[1] == postID {
			n++
		}
	}
	return n
}

func (w *memWorld) commentCount(postID string) int64 {
	var n int64
	for _, c := range w.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

func (w *memWorld) followerCount(userID string) int64 {
	var n int64
	for k := range w.follows {
		if k[1] == userID {
			n++
		}
	}
	return n
}

func sortNewestFirst(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// distanceMeters is the haversine distance between two points.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}

func near(p models.Post, g *repository.GeoFilter) bool {
	if g == nil {
		return true
	}
	if !p.HasLocation() {
		return false
	}
	return distanceMeters(*p.Latitude, *p.Longitude, g.Latitude, g.Longitude) <= g.RadiusMeters
}

type fakePosts struct{ w *memWorld }

func (f fakePosts) Create(_ context.Context, post *models.Post) error {
	w := f.w
	if err := w.enter("PostCreate"); err != nil {
		w.mu.Unlock()
		return err
	}
	defer w.mu.Unlock()
	if _, ok := w.users[post.AuthorID]; !ok {
		return models.NewNotFoundError("User", post.AuthorID)
	}
	if post.ID == "" {
		post.ID = w.nextID("post")
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	w.posts = append(w.posts, *post)
	return nil
}

func (f fakePosts) GetByID(_ context.Context, id string) (*models.Post, error) {
	w := f.w
	if err := w.enter("PostGetByID"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	for _, p := range w.posts {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("Post", id)
}

func (f fakePosts) Update(_ context.Context, id string, in repository.PostUpdate) error {
	w := f.w
	w.enter("PostUpdate")
	defer w.mu.Unlock()
	for i := range w.posts {
		if w.posts[i].ID == id {
			w.posts[i].Content = in.Content
			w.posts[i].Latitude = in.Latitude
			w.posts[i].Longitude = in.Longitude
			w.posts[i].Address = in.Address
			return nil
		}
	}
	return models.NewNotFoundError("Post", id)
}

func (f fakePosts) Delete(_ context.Context, id string) error {
	w := f.w
	w.enter("PostDelete")
	defer w.mu.Unlock()
	for i := range w.posts {
		if w.posts[i].ID == id {
			w.posts = append(w.posts[:i], w.posts[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("Post", id)
}

func (f fakePosts) ListTop(_ context.Context, q repository.TopQuery) ([]models.Post, error) {
	w := f.w
	if err := w.enter("ListTop"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	w.topQueries = append(w.topQueries, q)

	var matched []models.Post
	for _, p := range w.posts {
		if !p.CreatedAt.Before(q.Since) && near(p, q.Near) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if ra, rb := w.reactionCount(a.ID), w.reactionCount(b.ID); ra != rb {
			return ra > rb
		}
		if ca, cb := w.commentCount(a.ID), w.commentCount(b.ID); ca != cb {
			return ca > cb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return page(matched, q.Offset, q.Limit), nil
}

func (f fakePosts) ListKeyset(_ context.Context, q repository.KeysetQuery) ([]models.Post, error) {
	w := f.w
	if err := w.enter("ListKeyset"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	w.keysetQueries = append(w.keysetQueries, q)

	authors := map[string]bool{}
	for _, id := range q.AuthorIDs {
		authors[id] = true
	}

	var matched []models.Post
	for _, p := range w.posts {
		if len(authors) > 0 && !authors[p.AuthorID] {
			continue
		}
		if q.After != nil && !q.After.Before(p.CreatedAt, p.ID) {
			continue
		}
		if !near(p, q.Near) {
			continue
		}
		matched = append(matched, p)
	}
	sortNewestFirst(matched)
	return page(matched, 0, q.Limit), nil
}

func (f fakePosts) CommentCounts(_ context.Context, postIDs []string) (map[string]int64, error) {
	w := f.w
	if err := w.enter("CommentCounts"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	out := map[string]int64{}
	for _, id := range postIDs {
		if n := w.commentCount(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (f fakePosts) RandomLocationWithPhotos(_ context.Context) (*models.Location, error) {
	w := f.w
	w.enter("RandomLocationWithPhotos")
	defer w.mu.Unlock()
	for _, p := range w.posts {
		if p.HasLocation() && len(p.Photos) > 0 {
			return &models.Location{Latitude: *p.Latitude, Longitude: *p.Longitude}, nil
		}
	}
	return nil, models.NewNotFoundError("Geotagged post", "any")
}

func (f fakePosts) LocationsByAuthor(_ context.Context, authorID string) ([]models.PostLocation, error) {
	w := f.w
	if err := w.enter("LocationsByAuthor"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	var mine []models.Post
	for _, p := range w.posts {
		if p.AuthorID == authorID && p.HasLocation() {
			mine = append(mine, p)
		}
	}
	sortNewestFirst(mine)
	var out []models.PostLocation
	for _, p := range mine {
		out = append(out, models.PostLocation{PostID: p.ID, Latitude: *p.Latitude, Longitude: *p.Longitude, CreatedAt: p.CreatedAt})
	}
	return out, nil
}

type fakeUsers struct{ w *memWorld }

func (f fakeUsers) Create(_ context.Context, user *models.User) error {
	w := f.w
	w.enter("UserCreate")
	defer w.mu.Unlock()
	w.users[user.ID] = *user
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	w := f.w
	if err := w.enter("UserGetByID"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	u, ok := w.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (f fakeUsers) GetByIDs(_ context.Context, ids []string) ([]models.User, error) {
	w := f.w
	if err := w.enter("GetByIDs"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := w.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) ranked(exclude []string) []models.ScoredUser {
	skip := map[string]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	var out []models.ScoredUser
	for id, u := range f.w.users {
		if skip[id] {
			continue
		}
		out = append(out, models.ScoredUser{UserID: id, DisplayName: u.DisplayName, Score: f.w.followerCount(id)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (f fakeUsers) Search(_ context.Context, displayName string, offset, limit int) ([]models.UserListItem, error) {
	w := f.w
	w.enter("Search")
	defer w.mu.Unlock()
	var out []models.UserListItem
	for _, s := range f.ranked(nil) {
		if strings.Contains(strings.ToLower(s.DisplayName), strings.ToLower(displayName)) {
			out = append(out, models.UserListItem{
				Author:         models.Author{ID: s.UserID, DisplayName: s.DisplayName},
				FollowersCount: s.Score,
			})
		}
	}
	return page(out, offset, limit), nil
}

func (f fakeUsers) TopByFollowers(_ context.Context, exclude []string, limit int) ([]models.ScoredUser, error) {
	w := f.w
	if err := w.enter("TopByFollowers"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	return page(f.ranked(exclude), 0, limit), nil
}

func (f fakeUsers) NearbyPosters(_ context.Context, points []models.Location, radiusMeters float64, exclude []string, limit int) ([]models.ScoredUser, error) {
	w := f.w
	if err := w.enter("NearbyPosters"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	skip := map[string]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	scores := map[string]int64{}
	for _, p := range w.posts {
		if !p.HasLocation() || skip[p.AuthorID] {
			continue
		}
		for _, pt := range points {
			if distanceMeters(*p.Latitude, *p.Longitude, pt.Latitude, pt.Longitude) <= radiusMeters {
				scores[p.AuthorID]++
				break
			}
		}
	}
	var out []models.ScoredUser
	for id, score := range scores {
		out = append(out, models.ScoredUser{UserID: id, DisplayName: w.users[id].DisplayName, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	return page(out, 0, limit), nil
}

type fakeFollows struct{ w *memWorld }

func (f fakeFollows) Follow(_ context.Context, followerID, followeeID string) error {
	w := f.w
	w.enter("Follow")
	defer w.mu.Unlock()
	w.follows[[2]string{followerID, followeeID}] = true
	return nil
}

func (f fakeFollows) Unfollow(_ context.Context, followerID, followeeID string) error {
	w := f.w
	w.enter("Unfollow")
	defer w.mu.Unlock()
	delete(w.follows, [2]string{followerID, followeeID})
	return nil
}

func (f fakeFollows) FolloweeIDs(_ context.Context, userID string) ([]string, error) {
	w := f.w
	if err := w.enter("FolloweeIDs"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	var ids []string
	for k := range w.follows {
		if k[0] == userID {
			ids = append(ids, k[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f fakeFollows) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	w := f.w
	w.enter("IsFollowing")
	defer w.mu.Unlock()
	return w.follows[[2]string{followerID, followeeID}], nil
}

func (f fakeFollows) Counts(_ context.Context, userID string) (int64, int64, error) {
	w := f.w
	w.enter("Counts")
	defer w.mu.Unlock()
	var following int64
	for k := range w.follows {
		if k[0] == userID {
			following++
		}
	}
	return w.followerCount(userID), following, nil
}

type fakeReactions struct{ w *memWorld }

func (f fakeReactions) LikePost(_ context.Context, userID, postID string) error {
	w := f.w
	w.enter("LikePost")
	defer w.mu.Unlock()
	w.postLikes[[2]string{userID, postID}] = true
	return nil
}

func (f fakeReactions) UnlikePost(_ context.Context, userID, postID string) error {
	w := f.w
	w.enter("UnlikePost")
	defer w.mu.Unlock()
	delete(w.postLikes, [2]string{userID, postID})
	return nil
}

func (f fakeReactions) PostReactionCounts(_ context.Context, postIDs []string) (map[string]int64, error) {
	w := f.w
	if err := w.enter("PostReactionCounts"); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	defer w.mu.Unlock()
	out := map[string]int64{}
	for _, id := range postIDs {
		if n := w.reactionCount(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (f fakeReactions) LikedPostIDs(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	w := f.w
	w.enter("LikedPostIDs")
	defer w.mu.Unlock()
	out := map[string]bool{}
	for _, id := range postIDs {
		if w.postLikes[[2]string{userID, id}] {
			out[id] = true
		}
	}
	return out, nil
}

func (f fakeReactions) LikeComment(_ context.Context, userID, commentID string) error {
	w := f.w
	w.enter("LikeComment")
	defer w.mu.Unlock()
	w.commentLikes[[2]string{userID, commentID}] = true
	return nil
}

func (f fakeReactions) UnlikeComment(_ context.Context, userID, commentID string) error {
	w := f.w
	w.enter("UnlikeComment")
	defer w.mu.Unlock()
	delete(w.commentLikes, [2]string{userID, commentID})
	return nil
}

func (f fakeReactions) CommentReactionCounts(_ context.Context, commentIDs []string) (map[string]int64, error) {
	w := f.w
	w.enter("CommentReactionCounts")
	defer w.mu.Unlock()
	out := map[string]int64{}
	for k := range w.commentLikes {
		for _, id := range commentIDs {
			if k[1] == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func (f fakeReactions) LikedCommentIDs(_ context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	w := f.w
	w.enter("LikedCommentIDs")
	defer w.mu.Unlock()
	out := map[string]bool{}
	for _, id := range commentIDs {
		if w.commentLikes[[2]string{userID, id}] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeComments struct{ w *memWorld }

func (f fakeComments) Create(_ context.Context, comment *models.Comment) error {
	w := f.w
	w.enter("CommentCreate")
	defer w.mu.Unlock()
	if comment.ID == "" {
		comment.ID = w.nextID("comment")
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	w.comments = append(w.comments, *comment)
	return nil
}

func (f fakeComments) GetByID(_ context.Context, id string) (*models.Comment, error) {
	w := f.w
	w.enter("CommentGetByID")
	defer w.mu.Unlock()
	for _, c := range w.comments {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("Comment", id)
}

func (f fakeComments) Delete(_ context.Context, id string) error {
	w := f.w
	w.enter("CommentDelete")
	defer w.mu.Unlock()
	for i := range w.comments {
		if w.comments[i].ID == id {
			w.comments = append(w.comments[:i], w.comments[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("Comment", id)
}

func (f fakeComments) ListByPost(_ context.Context, postID string, after *cursor.Anchor, limit int) ([]models.Comment, error) {
	w := f.w
	w.enter("ListByPost")
	defer w.mu.Unlock()
	var matched []models.Comment
	for _, c := range w.comments {
		if c.PostID != postID {
			continue
		}
		if after != nil && !after.Before(c.CreatedAt, c.ID) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return page(matched, 0, limit), nil
}

// repos bundles the fakes over one world.
type repos struct {
	w         *memWorld
	posts     fakePosts
	users     fakeUsers
	follows   fakeFollows
	reactions fakeReactions
	comments  fakeComments
}

func newRepos() *repos {
	w := newWorld()
	return &repos{
		w:         w,
		posts:     fakePosts{w},
		users:     fakeUsers{w},
		follows:   fakeFollows{w},
		reactions: fakeReactions{w},
		comments:  fakeComments{w},
	}
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
