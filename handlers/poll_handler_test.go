package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"pollpulse-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionList(n int) []gin.H {
	opts := make([]gin.H, n)
	for i := range opts {
		opts[i] = gin.H{"text": fmt.Sprintf("Option %d", i+1)}
	}
	return opts
}

func TestCreatePoll(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	w := performRequest(router, "POST", "/api/polls", gin.H{
		"question":    "Unit Test Poll?",
		"description": "A poll created by a test",
		"theme":       "ocean",
		"options": []gin.H{
			{"text": "Yes", "emoji": "👍"},
			{"text": "No"},
		},
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		PollID  uint `json:"pollId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotZero(t, resp.PollID)

	var poll models.Poll
	require.NoError(t, db.Preload("Options").First(&poll, resp.PollID).Error)
	assert.Equal(t, "Unit Test Poll?", poll.Question)
	assert.Equal(t, "ocean", poll.Theme)
	assert.Equal(t, models.PollStatusActive, poll.Status)
	assert.Nil(t, poll.EndsAt)
	require.Len(t, poll.Options, 2)
	assert.Equal(t, "Yes", poll.Options[0].Text)
	assert.Equal(t, "👍", poll.Options[0].Emoji)
	assert.Equal(t, 0, poll.Options[0].DisplayOrder)
	assert.Equal(t, "No", poll.Options[1].Text)
	assert.Equal(t, "📊", poll.Options[1].Emoji) // default emoji
	assert.Equal(t, 1, poll.Options[1].DisplayOrder)
}

func TestCreatePoll_OptionBounds(t *testing.T) {
	router, db := SetupTestEnvironment(t)

	tests := []struct {
		name         string
		optionCount  int
		expectedCode int
	}{
		{"one option fails", 1, http.StatusBadRequest},
		{"two options succeed", 2, http.StatusOK},
		{"ten options succeed", 10, http.StatusOK},
		{"eleven options fail", 11, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ClearTables(db)
			w := performRequest(router, "POST", "/api/polls", gin.H{
				"question": "Bounds?",
				"options":  optionList(tc.optionCount),
			}, nil)
			assert.Equal(t, tc.expectedCode, w.Code)

			if tc.expectedCode == http.StatusOK {
				var count int64
				db.Model(&models.PollOption{}).Count(&count)
				assert.Equal(t, int64(tc.optionCount), count)
			}
		})
	}
}

func TestCreatePoll_Validation(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing question", gin.H{"options": optionList(2)}},
		{"blank question", gin.H{"question": "   ", "options": optionList(2)}},
		{"missing options", gin.H{"question": "Q?"}},
		{"blank option text", gin.H{
			"question": "Q?",
			"options":  []gin.H{{"text": "A"}, {"text": "  "}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/api/polls", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// 没有任何残留行
	var polls int64
	db.Model(&models.Poll{}).Count(&polls)
	assert.Zero(t, polls)
}

func TestCreatePoll_Duration(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	w := performRequest(router, "POST", "/api/polls", gin.H{
		"question": "Timed poll?",
		"options":  optionList(2),
		"duration": 2,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var poll models.Poll
	require.NoError(t, db.Order("id desc").First(&poll).Error)
	require.NotNil(t, poll.EndsAt)
	expected := time.Now().Add(2 * time.Hour)
	assert.WithinDuration(t, expected, *poll.EndsAt, time.Minute)
}

func TestCreatePoll_ThemeFallback(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	w := performRequest(router, "POST", "/api/polls", gin.H{
		"question": "Themed?",
		"options":  optionList(2),
		"theme":    "vaporwave",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var poll models.Poll
	require.NoError(t, db.Order("id desc").First(&poll).Error)
	assert.Equal(t, "default", poll.Theme)
}

func TestGetPoll(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	poll := createTestPoll(db, "Pick one", []string{"A", "B"}, nil)
	castVote(db, poll, poll.Options[0].ID, "s1", time.Now())
	castVote(db, poll, poll.Options[0].ID, "s2", time.Now())
	castVote(db, poll, poll.Options[1].ID, "s3", time.Now())

	w := performRequest(router, "GET", fmt.Sprintf("/api/polls/%d", poll.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Poll    struct {
			ID         uint                  `json:"id"`
			Status     string                `json:"status"`
			Options    []models.OptionResult `json:"options"`
			TotalVotes int64                 `json:"total_votes"`
		} `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, poll.ID, resp.Poll.ID)
	assert.Equal(t, "active", resp.Poll.Status)
	assert.Equal(t, int64(3), resp.Poll.TotalVotes)
	require.Len(t, resp.Poll.Options, 2)
	assert.Equal(t, "A", resp.Poll.Options[0].Text)
	assert.Equal(t, int64(2), resp.Poll.Options[0].Count)
	assert.InDelta(t, 66.67, resp.Poll.Options[0].Percentage, 0.001)
	assert.Equal(t, int64(1), resp.Poll.Options[1].Count)
	assert.InDelta(t, 33.33, resp.Poll.Options[1].Percentage, 0.001)
}

func TestGetPoll_NoVotes(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	poll := createTestPoll(db, "Empty", []string{"A", "B"}, nil)

	w := performRequest(router, "GET", fmt.Sprintf("/api/polls/%d", poll.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Poll struct {
			Options    []models.OptionResult `json:"options"`
			TotalVotes int64                 `json:"total_votes"`
		} `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Poll.TotalVotes)
	for _, opt := range resp.Poll.Options {
		assert.Zero(t, opt.Count)
		assert.Zero(t, opt.Percentage)
	}
}

func TestGetPoll_NotFound(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	w := performRequest(router, "GET", "/api/polls/99999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, "GET", "/api/polls/not-a-number", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPoll_LazyEndedStatus(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	past := time.Now().Add(-time.Hour)
	poll := createTestPoll(db, "Expired", []string{"A", "B"}, func(p *models.Poll) {
		p.EndsAt = &past
	})

	w := performRequest(router, "GET", fmt.Sprintf("/api/polls/%d", poll.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Poll struct {
			Status string `json:"status"`
		} `json:"poll"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ended", resp.Poll.Status)

	// 读操作不改写存储的状态
	var stored models.Poll
	require.NoError(t, db.First(&stored, poll.ID).Error)
	assert.Equal(t, models.PollStatusActive, stored.Status)
}

func TestGetPolls(t *testing.T) {
	router, db := SetupTestEnvironment(t)
	ClearTables(db)

	p1 := createTestPoll(db, "Cats or dogs?", []string{"Cats", "Dogs"}, nil)
	createTestPoll(db, "Coffee or tea?", []string{"Coffee", "Tea"}, nil)
	createTestPoll(db, "Hidden", []string{"A", "B"}, func(p *models.Poll) {
		p.Status = models.PollStatusEnded
	})
	castVote(db, p1, p1.Options[0].ID, "s1", time.Now())

	w := performRequest(router, "GET", "/api/polls", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Polls   []models.PollSummary `json:"polls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Polls, 2) // ended poll excluded

	// search
	w = performRequest(router, "GET", "/api/polls?search=Cats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Polls, 1)
	assert.Equal(t, "Cats or dogs?", resp.Polls[0].Question)
	assert.Equal(t, int64(1), resp.Polls[0].VoteCount)

	// popular puts the voted poll first
	w = performRequest(router, "GET", "/api/polls?filter=popular", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Polls)
	assert.Equal(t, "Cats or dogs?", resp.Polls[0].Question)

	// limit
	w = performRequest(router, "GET", "/api/polls?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Polls, 1)
}
