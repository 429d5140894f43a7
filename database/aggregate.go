package database

import (
	"math"
	"time"

	"pollpulse-backend/models"

	"gorm.io/gorm"
)

// TrendingThreshold 热门投票的最低票数
const TrendingThreshold = 100

// CountVotes returns the total number of votes recorded for a poll.
func CountVotes(db *gorm.DB, pollID uint) (int64, error) {
	var total int64
	err := db.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&total).Error
	return total, err
}

// OptionBreakdown returns per-option counts and percentages for a poll,
// ordered by display_order. Counts and the total they are measured against
// come from the same result set, so percentages are never torn across options.
func OptionBreakdown(db *gorm.DB, pollID uint) ([]models.OptionResult, int64, error) {
	var options []models.PollOption
	if err := db.Where("poll_id = ?", pollID).
		Order("display_order asc").
		Find(&options).Error; err != nil {
		return nil, 0, err
	}

	// 一次查询取全部选项计数
	type optionCount struct {
		OptionID uint
		Count    int64
	}
	var rows []optionCount
	if err := db.Model(&models.Vote{}).
		Select("option_id, COUNT(id) AS count").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	countByOption := make(map[uint]int64, len(rows))
	var total int64
	for _, row := range rows {
		countByOption[row.OptionID] = row.Count
		total += row.Count
	}

	counts := make([]int64, len(options))
	for i, opt := range options {
		counts[i] = countByOption[opt.ID]
	}
	percentages := ComputePercentages(counts, total)

	results := make([]models.OptionResult, len(options))
	for i, opt := range options {
		results[i] = models.OptionResult{
			OptionID:   opt.ID,
			Text:       opt.Text,
			Emoji:      opt.Emoji,
			Order:      opt.DisplayOrder,
			Count:      counts[i],
			Percentage: percentages[i],
		}
	}
	return results, total, nil
}

// ComputePercentages converts per-option counts into percentages of total,
// rounded to two decimal places. All zeros when total is zero.
func ComputePercentages(counts []int64, total int64) []float64 {
	percentages := make([]float64, len(counts))
	if total <= 0 {
		return percentages
	}
	for i, c := range counts {
		p := float64(c) * 100 / float64(total)
		percentages[i] = math.Round(p*100) / 100
	}
	return percentages
}

// ListPolls returns active polls with their total vote counts.
// filter: all|new|popular|trending; search matches the question text.
func ListPolls(db *gorm.DB, filter, search string, limit int) ([]models.PollSummary, error) {
	query := db.Model(&models.Poll{}).
		Select(`polls.id, polls.question, polls.description, polls.theme, polls.status,
			polls.created_at, polls.ends_at, COUNT(votes.id) AS vote_count`).
		Joins("LEFT JOIN votes ON votes.poll_id = polls.id").
		Where("polls.status = ?", models.PollStatusActive).
		Group("polls.id")

	if search != "" {
		query = query.Where("polls.question LIKE ?", "%"+search+"%")
	}

	switch filter {
	case "trending":
		query = query.Having("COUNT(votes.id) > ?", TrendingThreshold).
			Order("vote_count DESC")
	case "popular":
		query = query.Order("vote_count DESC")
	default: // all, new
		query = query.Order("polls.created_at DESC")
	}

	var polls []models.PollSummary
	err := query.Limit(limit).Scan(&polls).Error
	return polls, err
}

// ListAllPolls returns every poll with vote counts, newest first.
// Admin-only view: ended and draft polls are included.
func ListAllPolls(db *gorm.DB, limit int) ([]models.PollSummary, error) {
	var polls []models.PollSummary
	err := db.Model(&models.Poll{}).
		Select(`polls.id, polls.question, polls.description, polls.theme, polls.status,
			polls.created_at, polls.ends_at, COUNT(votes.id) AS vote_count`).
		Joins("LEFT JOIN votes ON votes.poll_id = polls.id").
		Group("polls.id").
		Order("polls.created_at DESC").
		Limit(limit).
		Scan(&polls).Error
	return polls, err
}

// GetGlobalStats computes the dashboard counters. Time windows are computed
// in Go so the same query runs on MySQL and the sqlite test database.
func GetGlobalStats(db *gorm.DB, now time.Time) (*models.GlobalStats, error) {
	stats := &models.GlobalStats{}

	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	if err := db.Model(&models.Vote{}).
		Where("voted_at >= ?", startOfDay).
		Count(&stats.VotesToday).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Vote{}).
		Where("voted_at >= ?", now.Add(-5*time.Minute)).
		Distinct("user_id").
		Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Poll{}).
		Where("status = ?", models.PollStatusActive).
		Count(&stats.TrendingPolls).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Vote{}).
		Where("voted_at >= ?", now.Add(-time.Hour)).
		Count(&stats.VotesPerHour).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// TopPolls returns active polls ranked by total votes.
func TopPolls(db *gorm.DB, limit int) ([]models.PollRanking, error) {
	var rankings []models.PollRanking
	err := db.Model(&models.Poll{}).
		Select("polls.id, polls.question, COUNT(votes.id) AS vote_count, polls.created_at").
		Joins("LEFT JOIN votes ON votes.poll_id = polls.id").
		Where("polls.status = ?", models.PollStatusActive).
		Group("polls.id").
		Order("vote_count DESC").
		Limit(limit).
		Scan(&rankings).Error
	return rankings, err
}

// TopVoters returns users ranked by how many votes they have cast.
func TopVoters(db *gorm.DB, limit int) ([]models.VoterRanking, error) {
	var rankings []models.VoterRanking
	err := db.Model(&models.User{}).
		Select("users.id, users.username, COUNT(votes.id) AS total_votes").
		Joins("LEFT JOIN votes ON votes.user_id = users.id").
		Group("users.id").
		Order("total_votes DESC").
		Limit(limit).
		Scan(&rankings).Error
	return rankings, err
}

// ListVoters returns who voted on a poll, newest first. Admin-only view.
func ListVoters(db *gorm.DB, pollID uint) ([]models.VoterInfo, error) {
	var voters []models.VoterInfo
	err := db.Model(&models.Vote{}).
		Select(`votes.user_id, users.username, poll_options.text AS option_text,
			votes.voted_at`).
		Joins("JOIN users ON users.id = votes.user_id").
		Joins("JOIN poll_options ON poll_options.id = votes.option_id").
		Where("votes.poll_id = ?", pollID).
		Order("votes.voted_at DESC").
		Scan(&voters).Error
	return voters, err
}
