package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the cache key for a user's login session (single-device guard).
func (r *CacheKeyStruct) UserLoginKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// TestQuestionsKey returns the cache key for a test's question payload.
func (r *CacheKeyStruct) TestQuestionsKey(testID string) string {
	return fmt.Sprintf("test:%s:questions", testID)
}

// SessionStartKey returns the cache key for an exam session's start timestamp.
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:started_at", sessionID)
}

// UserActiveSessionKey returns the cache key for a user's currently active exam session.
func (r *CacheKeyStruct) UserActiveSessionKey(userID string) string {
	return fmt.Sprintf("user:%s:active_session", userID)
}

var CacheKey = NewCacheKeyStruct()
