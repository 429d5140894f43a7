package models

import (
	"time"

	"gorm.io/gorm"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollStatusDraft    PollStatus = "draft"
	PollStatusActive   PollStatus = "active"
	PollStatusEnded    PollStatus = "ended"
	PollStatusArchived PollStatus = "archived" // 仅通过后台数据操作可达
)

// PollThemes 前端可选的主题列表
var PollThemes = []string{"default", "fire", "ocean", "neon", "forest"}

// ValidTheme reports whether theme is one of the known themes.
func ValidTheme(theme string) bool {
	for _, t := range PollThemes {
		if t == theme {
			return true
		}
	}
	return false
}

// Validation bounds, mirrored by the frontend.
const (
	MinPollOptions    = 2
	MaxPollOptions    = 10
	MaxQuestionLength = 500
	MaxOptionLength   = 255
	MaxUsernameLength = 50
)

// Poll represents a voting poll
type Poll struct {
	gorm.Model             // Includes ID, CreatedAt, UpdatedAt, DeletedAt
	Question    string     `gorm:"size:500;not null" json:"question"`
	Description string     `gorm:"type:text" json:"description"`
	Theme       string     `gorm:"size:20;not null;default:'default'" json:"theme"`
	Status      PollStatus `gorm:"size:16;not null;default:'active';index" json:"status"`
	EndsAt      *time.Time `json:"ends_at,omitempty"` // 可选的结束时间

	ShowResultsBeforeVote bool `gorm:"not null;default:true" json:"show_results_before_vote"`
	AllowMultipleVotes    bool `gorm:"not null;default:false" json:"allow_multiple_votes"`

	Options []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
}

// EffectiveStatus derives the status at time now. A stored active poll whose
// end time has passed is reported as ended; the row itself is not rewritten.
func (p *Poll) EffectiveStatus(now time.Time) PollStatus {
	if p.Status == PollStatusActive && p.EndsAt != nil && now.After(*p.EndsAt) {
		return PollStatusEnded
	}
	return p.Status
}

// Expired reports whether the poll can no longer accept votes at time now.
func (p *Poll) Expired(now time.Time) bool {
	return p.EndsAt != nil && now.After(*p.EndsAt)
}

// PollOption represents an option within a poll. Options are immutable after
// poll creation; vote counts are derived from the votes table, never stored.
type PollOption struct {
	gorm.Model
	PollID       uint   `gorm:"not null;index" json:"poll_id"`
	Text         string `gorm:"size:255;not null" json:"text"`
	Emoji        string `gorm:"size:16" json:"emoji"`
	DisplayOrder int    `gorm:"not null;default:0" json:"display_order"`
}

// User is a voter identity, created lazily on first vote. The session token
// comes from the client's local storage and is only used for vote attribution.
type User struct {
	gorm.Model
	SessionID string `gorm:"size:128;not null;uniqueIndex" json:"-"`
	Username  string `gorm:"size:50;not null;default:'Anonymous'" json:"username"`
	IPAddress string `gorm:"size:45" json:"-"`
}

// Vote is a single vote event. Append-only; rows are never updated.
type Vote struct {
	gorm.Model
	PollID   uint      `gorm:"not null;index:idx_votes_poll_user,priority:1" json:"poll_id"`
	OptionID uint      `gorm:"not null;index" json:"option_id"`
	UserID   uint      `gorm:"not null;index:idx_votes_poll_user,priority:2" json:"user_id"`
	VotedAt  time.Time `gorm:"not null;index" json:"voted_at"`
}

// --- Request / response shapes ---

// CreateOptionInput is one option in a poll creation request.
type CreateOptionInput struct {
	Text  string `json:"text" binding:"required"`
	Emoji string `json:"emoji"`
}

// CreatePollInput defines the expected input structure for creating a poll
type CreatePollInput struct {
	Question      string              `json:"question" binding:"required"`
	Description   string              `json:"description"`
	Options       []CreateOptionInput `json:"options" binding:"required,min=2,max=10,dive"`
	Theme         string              `json:"theme"`
	Duration      int                 `json:"duration"` // 小时数，0表示永不结束
	ShowResults   *bool               `json:"showResults"`
	MultipleVotes bool                `json:"multipleVotes"`
}

// VoteInput defines the expected input structure for submitting a vote
type VoteInput struct {
	OptionID  uint   `json:"optionId"`
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

// OptionResult is one option with its derived counts, ordered by display_order.
type OptionResult struct {
	OptionID   uint    `json:"id"`
	Text       string  `json:"text"`
	Emoji      string  `json:"emoji"`
	Order      int     `json:"display_order"`
	Count      int64   `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}

// PollSummary is a list-view row: poll fields plus total vote count.
type PollSummary struct {
	ID          uint       `json:"id"`
	Question    string     `json:"question"`
	Description string     `json:"description"`
	Theme       string     `json:"theme"`
	Status      PollStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	VoteCount   int64      `json:"vote_count"`
}

// GlobalStats are the aggregate counters shown on the dashboard.
type GlobalStats struct {
	VotesToday    int64 `json:"votes_today"`
	ActiveUsers   int64 `json:"active_users"`
	TrendingPolls int64 `json:"trending_polls"`
	VotesPerHour  int64 `json:"votes_per_hour"`
}

// PollRanking is one leaderboard row for type=polls.
type PollRanking struct {
	ID        uint      `json:"id"`
	Question  string    `json:"question"`
	VoteCount int64     `json:"vote_count"`
	CreatedAt time.Time `json:"created_at"`
}

// VoterRanking is one leaderboard row for type=voters.
type VoterRanking struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	TotalVotes int64  `json:"total_votes"`
}

// VoterInfo is one row of the admin voter listing for a poll.
type VoterInfo struct {
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	OptionText string    `json:"option_text"`
	VotedAt    time.Time `json:"voted_at"`
}
