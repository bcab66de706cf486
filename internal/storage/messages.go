package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"livechat/backend/internal/models"

	"gorm.io/gorm"
)

// SaveMessage stores msg (filling ID and Timestamp) and publishes its INSERT event.
func (s *Service) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for session %s: %v", msg.SessionID, err)
		return err
	}
	s.publish(ctx, models.TableMessages, models.EventInsert, msg)
	return nil
}

// ListMessages returns the messages of a session in timestamp order.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp asc").
		Find(&messages).Error
	if err != nil {
		log.Printf("ERROR: Failed to get messages for session %s: %v", sessionID, err)
		return nil, err
	}
	return messages, nil
}

// MarkMessagesRead flags the unread messages written by the given sender types.
func (s *Service) MarkMessagesRead(ctx context.Context, sessionID string, senders []models.SenderType) (int64, error) {
	types := make([]string, 0, len(senders))
	for _, t := range senders {
		types = append(types, string(t))
	}
	result := s.DB.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("session_id = ? AND read_status = ? AND sender_type IN ?", sessionID, false, types).
		Update("read_status", true)
	return result.RowsAffected, result.Error
}

// LastAttendantMessageAt returns the timestamp of the latest attendant message, or the
// zero time if the attendant has not written yet.
func (s *Service) LastAttendantMessageAt(ctx context.Context, sessionID string) (time.Time, error) {
	var msg models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("session_id = ? AND sender_type = ?", sessionID, string(models.SenderAttendant)).
		Order("timestamp desc").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return msg.Timestamp, nil
}
