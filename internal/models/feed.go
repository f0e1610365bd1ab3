package models

import "time"

// FeedStrategy selects how a feed page is ranked and paginated.
type FeedStrategy string

const (
	// FeedTop ranks the last week's posts by engagement, paginated by offset.
	FeedTop FeedStrategy = "top"
	// FeedFollowing lists posts by followed authors, newest first.
	FeedFollowing FeedStrategy = "following"
	// FeedRecent lists all posts, newest first.
	FeedRecent FeedStrategy = "recent"
)

// ParseFeedStrategy maps a query value to a strategy. Empty means recent.
func ParseFeedStrategy(s string) (FeedStrategy, bool) {
	switch FeedStrategy(s) {
	case "", FeedRecent:
		return FeedRecent, true
	case FeedTop:
		return FeedTop, true
	case FeedFollowing:
		return FeedFollowing, true
	}
	return "", false
}

// PostSummary is a post merged with its author, counters and the caller's like state.
type PostSummary struct {
	ID                   string      `json:"id"`
	Content              string      `json:"content"`
	Latitude             *float64    `json:"latitude,omitempty"`
	Longitude            *float64    `json:"longitude,omitempty"`
	Address              *string     `json:"address,omitempty"`
	Photos               []PostPhoto `json:"photos"`
	Author               Author      `json:"author"`
	ReactionCount        int64       `json:"reactionCount"`
	CommentCount         int64       `json:"commentCount"`
	IsLikedByCurrentUser bool        `json:"isLikedByCurrentUser"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// FeedPage is one page of a feed. NextCursor is nil on the last page.
type FeedPage struct {
	Items      []PostSummary `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}
