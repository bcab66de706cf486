package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livechat/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// ResumeEntry lets a lead's widget resume its session after a page reload.
type ResumeEntry struct {
	SessionID   string          `json:"sessionId"`
	SessionData json.RawMessage `json:"sessionData,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Fresh reports whether the entry is younger than config.ResumeCacheTTL at now.
func (e ResumeEntry) Fresh(now time.Time) bool {
	return !e.Timestamp.IsZero() && now.Sub(e.Timestamp) < config.ResumeCacheTTL
}

func resumeKey(visitorID string) string {
	return "chat:resume:" + visitorID
}

func chatEnabledKey(tenantID string) string {
	if tenantID == "" {
		tenantID = "default"
	}
	return "chat:enabled:" + tenantID
}

// SaveResume stores the entry for 24 hours.
func (s *Service) SaveResume(ctx context.Context, visitorID string, entry ResumeEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.Now()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode resume entry: %w", err)
	}
	return s.Redis.Set(ctx, resumeKey(visitorID), payload, config.ResumeCacheTTL).Err()
}

// GetResume returns nil when there is no entry or it is older than 24 hours.
func (s *Service) GetResume(ctx context.Context, visitorID string) (*ResumeEntry, error) {
	raw, err := s.Redis.Get(ctx, resumeKey(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry ResumeEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode resume entry: %w", err)
	}
	if !entry.Fresh(s.Now()) {
		_ = s.Redis.Del(ctx, resumeKey(visitorID)).Err()
		return nil, nil
	}
	return &entry, nil
}

// IsChatEnabled reads the chat switch of a tenant. A missing key means enabled.
func (s *Service) IsChatEnabled(ctx context.Context, tenantID string) (bool, error) {
	status, err := s.Redis.Get(ctx, chatEnabledKey(tenantID)).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return status != "0", nil
}

func (s *Service) SetChatEnabled(ctx context.Context, tenantID string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return s.Redis.Set(ctx, chatEnabledKey(tenantID), value, 0).Err()
}
