package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"pollpulse-backend/cache"
	"pollpulse-backend/database"
	"pollpulse-backend/models"

	"github.com/gin-gonic/gin"
)

// statsCacheTTL 全局统计缓存时间。前端每5秒刷新一次，
// 缓存略短于刷新间隔即可明显降低聚合查询压力。
const statsCacheTTL = 4 * time.Second

const statsCacheKey = "stats:global"

// HealthCheck 提供基本健康检查端点
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// GetGlobalStats handles GET /api/stats/global.
func GetGlobalStats(c *gin.Context) {
	var stats models.GlobalStats
	err := cache.GetJSON(c.Request.Context(), statsCacheKey, &stats)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
		return
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("读取统计缓存失败: %v", err)
	}

	fresh, err := database.GetGlobalStats(database.DB, time.Now())
	if err != nil {
		log.Printf("计算全局统计失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch stats"})
		return
	}

	if err := cache.SetJSON(c.Request.Context(), statsCacheKey, fresh, statsCacheTTL); err != nil {
		log.Printf("写入统计缓存失败: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": fresh})
}

// GetLeaderboard handles GET /api/leaderboard?type&limit.
func GetLeaderboard(c *gin.Context) {
	lbType := c.DefaultQuery("type", "voters")

	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	switch lbType {
	case "polls":
		rankings, err := database.TopPolls(database.DB, limit)
		if err != nil {
			log.Printf("查询投票排行失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": rankings})
	case "voters":
		rankings, err := database.TopVoters(database.DB, limit)
		if err != nil {
			log.Printf("查询用户排行失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": rankings})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid leaderboard type"})
	}
}
