package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"geofeed/internal/config"
	"geofeed/internal/database"
	"geofeed/internal/models"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{
		Port:                       "8375",
		Env:                        "test",
		JWTSecret:                  testSecret,
		JWTIssuer:                  "geofeed-api",
		JWTAudience:                "geofeed-client",
		GeocodeTimeoutMS:           1000,
		ClusterCount:               10,
		ClusterCacheTTLMinutes:     30,
		FeedDefaultPageSize:        10,
		FeedMaxPageSize:            50,
		FeedTopWindowHours:         7 * 24,
		RecommendationLimit:        20,
		RecommendationRadiusMeters: 5000,
	}
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
}

// newTestEnv builds the full middleware and route stack over SQLite without Redis.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupSQLiteDB(t)
	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)
	return &testEnv{server: s, app: s.testApp(), db: db}
}

func (s *Server) testApp() *fiber.App {
	app := NewApp()
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (e *testEnv) user(t *testing.T, name string) string {
	t.Helper()
	u := models.User{ID: uuid.NewString(), DisplayName: name, Email: uuid.NewString() + "@example.com"}
	require.NoError(t, e.db.Create(&u).Error)
	return u.ID
}

func token(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"iss": "geofeed-api",
		"aud": "geofeed-client",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// call performs a request and decodes a JSON body into out when out is non-nil.
func call(t *testing.T, app *fiber.App, method, path, bearer string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, bearer))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}
