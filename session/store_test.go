package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_CreateValidate(t *testing.T) {
	s := NewStore(time.Hour)
	defer s.Close()

	token := s.Create()
	assert.NotEmpty(t, token)
	assert.True(t, s.Validate(token))
	assert.False(t, s.Validate("no-such-token"))
}

func TestStore_Revoke(t *testing.T) {
	s := NewStore(time.Hour)
	defer s.Close()

	token := s.Create()
	s.Revoke(token)
	assert.False(t, s.Validate(token))
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(time.Hour)
	defer s.Close()

	token := s.Create()

	// 把时钟拨到TTL之后
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, s.Validate(token))
	assert.Equal(t, 0, s.Len(), "expired entry removed on access")
}

func TestStore_ValidateRefreshesTTL(t *testing.T) {
	s := NewStore(time.Hour)
	defer s.Close()

	token := s.Create()

	// 50分钟后访问一次，会话续期
	base := time.Now()
	s.now = func() time.Time { return base.Add(50 * time.Minute) }
	assert.True(t, s.Validate(token))

	// 距创建已100分钟，但距最后一次使用只有50分钟
	s.now = func() time.Time { return base.Add(100 * time.Minute) }
	assert.True(t, s.Validate(token))
}

func TestStore_Sweep(t *testing.T) {
	s := NewStore(time.Hour)
	defer s.Close()

	s.Create()
	s.Create()
	live := s.Create()
	assert.Equal(t, 3, s.Len())

	// 前两个过期，第三个续期后再清理
	s.now = func() time.Time { return time.Now().Add(30 * time.Minute) }
	assert.True(t, s.Validate(live))
	s.now = func() time.Time { return time.Now().Add(70 * time.Minute) }
	s.sweep()
	assert.Equal(t, 1, s.Len(), "sweep purges only expired sessions")
}
