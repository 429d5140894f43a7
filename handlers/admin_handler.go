package handlers

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"pollpulse-backend/database"
	"pollpulse-backend/models"
	"pollpulse-backend/session"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the admin bearer token.
const AdminTokenHeader = "X-Admin-Token"

var adminSessions *session.Store

// InitAdminSessions wires the session store used by the admin endpoints.
func InitAdminSessions(store *session.Store) {
	adminSessions = store
}

// CloseAdminSessions 停止会话清理协程
func CloseAdminSessions() {
	if adminSessions != nil {
		adminSessions.Close()
	}
}

// AdminLoginInput is the login request body.
type AdminLoginInput struct {
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /api/admin/login. The password comes from the
// ADMIN_PASSWORD environment variable; login is disabled when it is unset.
func AdminLogin(c *gin.Context) {
	var input AdminLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password is required"})
		return
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" || input.Password != adminPassword {
		log.Printf("管理员登录失败，来源: %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return
	}

	token := adminSessions.Create()
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// AdminLogout handles POST /api/admin/logout.
func AdminLogout(c *gin.Context) {
	token := c.GetHeader(AdminTokenHeader)
	if token != "" {
		adminSessions.Revoke(token)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// RequireAdmin rejects requests without a live admin session. A valid token
// gets its expiry refreshed as a side effect.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AdminTokenHeader)
		if token == "" || adminSessions == nil || !adminSessions.Validate(token) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminListPolls handles GET /api/admin/polls: every poll regardless of
// status, with vote counts and lazily derived status.
func AdminListPolls(c *gin.Context) {
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	polls, err := database.ListAllPolls(database.DB, limit)
	if err != nil {
		log.Printf("查询全部投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch polls"})
		return
	}

	now := time.Now()
	for i := range polls {
		if polls[i].Status == models.PollStatusActive &&
			polls[i].EndsAt != nil && now.After(*polls[i].EndsAt) {
			polls[i].Status = models.PollStatusEnded
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "polls": polls})
}
