package repository

import (
	"context"
	"time"

	"token-vending-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// Record stores a newly received notification. It returns false when the
	// event id was already recorded, which makes redelivery a no-op.
	Record(ctx context.Context, event *model.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, status model.WebhookEventStatus, errMsg string) error
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

func (r *webhookEventRepositoryImpl) Record(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	if event.Status == "" {
		event.Status = model.WebhookEventReceived
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *webhookEventRepositoryImpl) MarkProcessed(ctx context.Context, eventID string, status model.WebhookEventStatus, errMsg string) error {
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       status,
			"error":        errMsg,
			"processed_at": time.Now(),
		}).Error
}
