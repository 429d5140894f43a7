package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"pollpulse-backend/cache"
	"pollpulse-backend/database"
	"pollpulse-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 投票业务错误
var (
	errPollNotFound   = errors.New("Poll not found")
	errPollEnded      = errors.New("Poll has ended")
	errOptionNotFound = errors.New("Option not found")
	errAlreadyVoted   = errors.New("You have already voted on this poll")
)

// SubmitVote handles POST /api/polls/:id/vote.
//
// Identity resolution (user create/rename) commits on its own before the vote
// transaction, so a rename sticks even when the vote is rejected. The
// uniqueness check and the insert run inside a single transaction, wrapped in
// a redsync mutex per (poll, user) when Redis is live; without Redis a
// process-local mutex under the same key serializes concurrent duplicates.
func SubmitVote(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var input models.VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if input.OptionID == 0 || input.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields"})
		return
	}

	// 1. 检查投票存在且开放
	var poll models.Poll
	err := database.DB.Where("status = ?", models.PollStatusActive).
		First(&poll, pollID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": errPollNotFound.Error()})
		} else {
			log.Printf("查询投票失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit vote"})
		}
		return
	}
	if poll.Expired(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errPollEnded.Error()})
		return
	}

	// 2. 解析身份，独立提交。改名即使后续投票被拒绝也会保留。
	user, err := database.GetOrCreateUser(database.DB, input.SessionID, input.Username, c.ClientIP())
	if err != nil {
		log.Printf("解析用户身份失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit vote"})
		return
	}

	// 3. 在 (poll, user) 锁内执行检查加写入
	lockKey := fmt.Sprintf("vote:%d:%d", poll.ID, user.ID)
	lockService := cache.GetLockService()

	err = lockService.WithLock(lockKey, 5*time.Second, func() error {
		return recordVote(&poll, input.OptionID, user.ID)
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Vote recorded successfully"})
	case errors.Is(err, errAlreadyVoted), errors.Is(err, errOptionNotFound), errors.Is(err, errPollEnded):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, cache.ErrLockNotAcquired):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Vote is already being processed"})
	default:
		log.Printf("提交投票失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit vote"})
	}
}

// recordVote runs the check-then-insert inside one transaction.
func recordVote(poll *models.Poll, optionID, userID uint) error {
	tx := database.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	// 选项必须属于该投票
	var option models.PollOption
	if err := tx.Where("id = ? AND poll_id = ?", optionID, poll.ID).
		First(&option).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errOptionNotFound
		}
		return err
	}

	// 单票投票：同一用户第二票拒绝写入
	if !poll.AllowMultipleVotes {
		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("poll_id = ? AND user_id = ?", poll.ID, userID).
			Count(&existing).Error; err != nil {
			tx.Rollback()
			return err
		}
		if existing > 0 {
			tx.Rollback()
			return errAlreadyVoted
		}
	}

	vote := models.Vote{
		PollID:   poll.ID,
		OptionID: option.ID,
		UserID:   userID,
		VotedAt:  time.Now(),
	}
	if err := tx.Create(&vote).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// ListPollVoters handles GET /api/admin/polls/:id/voters.
func ListPollVoters(c *gin.Context) {
	pollID, ok := parsePollID(c)
	if !ok {
		return
	}

	var poll models.Poll
	if err := database.DB.First(&poll, pollID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Poll not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch voters"})
		}
		return
	}

	voters, err := database.ListVoters(database.DB, poll.ID)
	if err != nil {
		log.Printf("查询投票人失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch voters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "voters": voters})
}
