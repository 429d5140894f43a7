package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pollpulse-backend/database"
	"pollpulse-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// parsePollID 从URL参数解析投票ID
func parsePollID(c *gin.Context) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid poll ID format"})
		return 0, false
	}
	return uint(id), true
}

// CreatePoll handles POST /api/polls.
// The poll row and all of its options are written in one transaction.
func CreatePoll(c *gin.Context) {
	var input models.CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	question := strings.TrimSpace(input.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Question is required"})
		return
	}
	if len(question) > models.MaxQuestionLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Question is too long"})
		return
	}
	if len(input.Options) < models.MinPollOptions || len(input.Options) > models.MaxPollOptions {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "A poll must have between 2 and 10 options",
		})
		return
	}
	for _, opt := range input.Options {
		text := strings.TrimSpace(opt.Text)
		if text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Option text is required"})
			return
		}
		if len(text) > models.MaxOptionLength {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Option text is too long"})
			return
		}
	}

	theme := input.Theme
	if !models.ValidTheme(theme) {
		theme = "default"
	}

	// duration单位为小时，0表示永不结束
	var endsAt *time.Time
	if input.Duration > 0 {
		t := time.Now().Add(time.Duration(input.Duration) * time.Hour)
		endsAt = &t
	}

	showResults := true
	if input.ShowResults != nil {
		showResults = *input.ShowResults
	}

	poll := models.Poll{
		Question:              question,
		Description:           strings.TrimSpace(input.Description),
		Theme:                 theme,
		Status:                models.PollStatusActive,
		EndsAt:                endsAt,
		ShowResultsBeforeVote: showResults,
		AllowMultipleVotes:    input.MultipleVotes,
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create poll"})
		return
	}

	if err := tx.Create(&poll).Error; err != nil {
		tx.Rollback()
		log.Printf("创建投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create poll"})
		return
	}

	options := make([]models.PollOption, len(input.Options))
	for i, opt := range input.Options {
		emoji := opt.Emoji
		if emoji == "" {
			emoji = "📊"
		}
		options[i] = models.PollOption{
			PollID:       poll.ID,
			Text:         strings.TrimSpace(opt.Text),
			Emoji:        emoji,
			DisplayOrder: i,
		}
	}
	if err := tx.Create(&options).Error; err != nil {
		tx.Rollback()
		log.Printf("创建投票选项失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create poll"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pollId":  poll.ID,
		"message": "Poll created successfully",
	})
}

// GetPolls handles GET /api/polls?filter&search&limit.
func GetPolls(c *gin.Context) {
	filter := c.DefaultQuery("filter", "all")
	search := c.Query("search")

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	polls, err := database.ListPolls(database.DB, filter, search, limit)
	if err != nil {
		log.Printf("查询投票列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch polls"})
		return
	}

	// 已过期但列中仍标记为active的投票，响应里按ended返回
	now := time.Now()
	for i := range polls {
		if polls[i].Status == models.PollStatusActive &&
			polls[i].EndsAt != nil && now.After(*polls[i].EndsAt) {
			polls[i].Status = models.PollStatusEnded
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "polls": polls})
}

// GetPoll handles GET /api/polls/:id, returning the poll with its option
// breakdown and total vote count. Status is derived lazily: an active poll
// past its end time is reported as ended without rewriting the row.
func GetPoll(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var poll models.Poll
	if err := database.DB.First(&poll, pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Poll not found"})
		} else {
			log.Printf("查询投票失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch poll"})
		}
		return
	}

	options, totalVotes, err := database.OptionBreakdown(database.DB, poll.ID)
	if err != nil {
		log.Printf("统计投票结果失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"poll": gin.H{
			"id":                       poll.ID,
			"question":                 poll.Question,
			"description":              poll.Description,
			"theme":                    poll.Theme,
			"status":                   poll.EffectiveStatus(time.Now()),
			"created_at":               poll.CreatedAt,
			"ends_at":                  poll.EndsAt,
			"show_results_before_vote": poll.ShowResultsBeforeVote,
			"allow_multiple_votes":     poll.AllowMultipleVotes,
			"options":                  options,
			"total_votes":              totalVotes,
		},
	})
}

// SetStatusInput is the body of the admin status change request.
type SetStatusInput struct {
	Status models.PollStatus `json:"status" binding:"required"`
}

// SetPollStatus handles PATCH /api/admin/polls/:id/status. Only the
// active and ended states can be set through the API.
func SetPollStatus(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var input SetStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if input.Status != models.PollStatusActive && input.Status != models.PollStatusEnded {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid status"})
		return
	}

	var poll models.Poll
	if err := database.DB.First(&poll, pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Poll not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update poll"})
		}
		return
	}

	if err := database.DB.Model(&poll).Update("status", input.Status).Error; err != nil {
		log.Printf("更新投票状态失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": input.Status})
}

// DeletePoll handles DELETE /api/admin/polls/:id: votes, then options, then
// the poll itself, hard-deleted in one transaction.
func DeletePoll(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete poll"})
		return
	}

	if err := tx.Unscoped().Where("poll_id = ?", pollID).Delete(&models.Vote{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete poll"})
		return
	}

	if err := tx.Unscoped().Where("poll_id = ?", pollID).Delete(&models.PollOption{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete poll"})
		return
	}

	result := tx.Unscoped().Delete(&models.Poll{}, pollID)
	if result.Error != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete poll"})
		return
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Poll not found"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete poll"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Poll deleted successfully"})
}
