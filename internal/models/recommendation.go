package models

// RecommendedUser is a follow suggestion. Exactly one score field is set:
// SameLocationsCount for location matches, FollowersCount for popularity fill.
type RecommendedUser struct {
	UserID             string `json:"userId"`
	DisplayName        string `json:"displayName"`
	AvatarURL          string `json:"avatarUrl,omitempty"`
	SameLocationsCount *int64 `json:"sameLocationsCount,omitempty"`
	FollowersCount     *int64 `json:"followersCount,omitempty"`
}

// ScoredUser is a raw candidate row produced by a recommendation query.
type ScoredUser struct {
	UserID      string `gorm:"column:user_id"`
	DisplayName string `gorm:"column:display_name"`
	AvatarURL   string `gorm:"column:avatar_url"`
	Score       int64  `gorm:"column:score"`
}
