package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"pollpulse-backend/cache"
	"pollpulse-backend/database"
	"pollpulse-backend/models"
	"pollpulse-backend/session"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestEnvironment sets up the Gin router and in-memory SQLite database
// for testing. The router mirrors the route layout in routes.SetupRouter;
// registering it here directly avoids an import cycle with the routes package.
func SetupTestEnvironment(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Redis is always mocked in tests
	os.Setenv("REDIS_MOCK", "true")
	_ = cache.InitRedis()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	database.DB = db
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := database.DB.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	store := session.NewStore(0)
	InitAdminSessions(store)
	t.Cleanup(store.Close)

	SetVoteRateLimit(false, 0, 0)

	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.GET("/stats/global", GetGlobalStats)
		api.GET("/leaderboard", GetLeaderboard)

		polls := api.Group("/polls")
		{
			polls.GET("", GetPolls)
			polls.POST("", CreatePoll)
			polls.GET("/:id", GetPoll)
			polls.POST("/:id/vote", VoteRateLimitMiddleware(), SubmitVote)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/login", AdminLogin)

			protected := admin.Group("", RequireAdmin())
			{
				protected.POST("/logout", AdminLogout)
				protected.GET("/polls", AdminListPolls)
				protected.GET("/polls/:id/voters", ListPollVoters)
				protected.PATCH("/polls/:id/status", SetPollStatus)
				protected.DELETE("/polls/:id", DeletePoll)
			}
		}
	}

	return router, db
}

// ClearTables wipes all rows between tests. Order matters due to foreign
// keys; hard deletes so unique indexes do not trip over soft-deleted rows.
func ClearTables(db *gorm.DB) {
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Vote{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.PollOption{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Poll{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.User{})
}

// performRequest sends a JSON request through the router and records the response.
func performRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

// createTestPoll inserts a poll with the given options directly into db.
func createTestPoll(db *gorm.DB, question string, optionTexts []string, mutate func(*models.Poll)) models.Poll {
	poll := models.Poll{
		Question:              question,
		Theme:                 "default",
		Status:                models.PollStatusActive,
		ShowResultsBeforeVote: true,
	}
	if mutate != nil {
		mutate(&poll)
	}
	db.Create(&poll)

	for i, text := range optionTexts {
		db.Create(&models.PollOption{
			PollID:       poll.ID,
			Text:         text,
			Emoji:        "📊",
			DisplayOrder: i,
		})
	}
	db.Preload("Options").First(&poll, poll.ID)
	return poll
}

// castVote inserts a vote row directly, creating the user if needed.
func castVote(db *gorm.DB, poll models.Poll, optionID uint, sessionID string, at time.Time) models.User {
	user, _ := database.GetOrCreateUser(db, sessionID, "", "")
	db.Create(&models.Vote{
		PollID:   poll.ID,
		OptionID: optionID,
		UserID:   user.ID,
		VotedAt:  at,
	})
	return *user
}
