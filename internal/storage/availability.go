package storage

import (
	"context"
	"errors"

	"livechat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAvailability returns nil without error when the attendant has no record yet.
func (s *Service) GetAvailability(ctx context.Context, userID string) (*models.AttendantAvailability, error) {
	var avail models.AttendantAvailability
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&avail).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &avail, nil
}

// UpsertAvailability writes the whole record, inserting it on first use.
func (s *Service) UpsertAvailability(ctx context.Context, avail *models.AttendantAvailability) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_online", "current_chats", "max_concurrent_chats", "last_seen"}),
		}).
		Create(avail).Error
}
