package repository

import (
	"testing"
	"time"

	"geofeed/internal/database"
	"geofeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB wires gorm's postgres dialect to sqlmock for SQL shape tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns an in-memory database with the non-spatial schema.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func mustCreateUser(t *testing.T, db *gorm.DB, id, name string) models.User {
	t.Helper()
	u := models.User{ID: id, DisplayName: name, Email: id + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func mustCreatePost(t *testing.T, db *gorm.DB, id, authorID string, createdAt time.Time) models.Post {
	t.Helper()
	p := models.Post{ID: id, AuthorID: authorID, Content: "post " + id, CreatedAt: createdAt}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func ptr[T any](v T) *T {
	return &v
}
