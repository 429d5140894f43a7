package database

import (
	"errors"
	"strings"

	"pollpulse-backend/models"

	"gorm.io/gorm"
)

// GetOrCreateUser resolves a client session token to a user row, creating it
// on first use. A supplied username wins over the stored one (last-write-wins,
// no history); an empty one leaves the stored name alone. Runs against tx so
// callers choose whether the side effect is part of a larger transaction or
// stands alone.
func GetOrCreateUser(tx *gorm.DB, sessionID, username, ipAddress string) (*models.User, error) {
	name := sanitizeUsername(username)

	var user models.User
	err := tx.Where("session_id = ?", sessionID).First(&user).Error
	if err == nil {
		// 已存在，仅在提供了新名字时改名
		if strings.TrimSpace(username) != "" && user.Username != name {
			user.Username = name
			if err := tx.Model(&user).Update("username", name).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		SessionID: sessionID,
		Username:  name,
		IPAddress: ipAddress,
	}
	if err := tx.Create(&user).Error; err != nil {
		// 并发首投时另一请求可能刚创建了同一session，重查一次
		if ferr := tx.Where("session_id = ?", sessionID).First(&user).Error; ferr == nil {
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}

// sanitizeUsername trims and truncates a display name to 50 runes,
// defaulting to Anonymous when empty.
func sanitizeUsername(username string) string {
	name := strings.TrimSpace(username)
	if name == "" {
		return "Anonymous"
	}
	runes := []rune(name)
	if len(runes) > models.MaxUsernameLength {
		name = string(runes[:models.MaxUsernameLength])
	}
	return name
}
