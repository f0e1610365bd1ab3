package database

import "geofeed/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostPhoto{},
		&models.Comment{},
		&models.PostReaction{},
		&models.CommentReaction{},
		&models.Follow{},
	}
}
