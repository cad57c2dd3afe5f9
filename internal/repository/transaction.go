package repository

import (
	"context"
	"time"

	"token-vending-service/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.PendingTransaction) error
	FindByOrderID(ctx context.Context, orderID string) (*model.PendingTransaction, error)
	SaveGatewayResult(ctx context.Context, orderID, gatewayToken, redirectURL string, raw []byte) error
	// ClaimForVending atomically moves a settleable transaction to paid and
	// takes the vending lease. It reports false when another caller holds a
	// live lease or the status is no longer settleable.
	ClaimForVending(ctx context.Context, orderID, claimID string, now, staleBefore time.Time) (bool, error)
	MarkVended(ctx context.Context, orderID, claimID, tokenCode string) (bool, error)
	MarkVendFailed(ctx context.Context, orderID, claimID, vendErr string) (bool, error)
	MarkCancelled(ctx context.Context, orderID string) (bool, error)
	SummarizeByType(ctx context.Context, from, to time.Time) ([]*model.TypeSummary, error)
	CountByStatus(ctx context.Context, status model.TransactionStatus, from, to time.Time) (int64, error)
}

type transactionRepoImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepoImpl{
		db: db,
	}
}

func (r *transactionRepoImpl) Create(ctx context.Context, txn *model.PendingTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepoImpl) FindByOrderID(ctx context.Context, orderID string) (*model.PendingTransaction, error) {
	var txn model.PendingTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&txn).Error

	if err != nil {
		return nil, err
	}

	return &txn, nil
}

func (r *transactionRepoImpl) SaveGatewayResult(ctx context.Context, orderID, gatewayToken, redirectURL string, raw []byte) error {
	result := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"gateway_token":    gatewayToken,
			"redirect_url":     redirectURL,
			"gateway_response": raw,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *transactionRepoImpl) ClaimForVending(ctx context.Context, orderID, claimID string, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Where("order_id = ? AND status IN ?", orderID, model.SettleableStatuses).
		Where("(vend_claimed_at IS NULL OR vend_claimed_at < ?)", staleBefore).
		Updates(map[string]interface{}{
			"status":           model.StatusPaid,
			"paid_at":          now,
			"vend_claim_id":    claimID,
			"vend_claimed_at":  now,
			"vending_attempts": gorm.Expr("vending_attempts + ?", 1),
			"updated_at":       now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *transactionRepoImpl) MarkVended(ctx context.Context, orderID, claimID, tokenCode string) (bool, error) {
	return r.releaseClaim(ctx, orderID, claimID, map[string]interface{}{
		"status":               model.StatusCompletedVending,
		"generated_token_code": tokenCode,
		"last_vending_error":   "",
	})
}

func (r *transactionRepoImpl) MarkVendFailed(ctx context.Context, orderID, claimID, vendErr string) (bool, error) {
	return r.releaseClaim(ctx, orderID, claimID, map[string]interface{}{
		"status":             model.StatusFailedVending,
		"last_vending_error": vendErr,
	})
}

func (r *transactionRepoImpl) releaseClaim(ctx context.Context, orderID, claimID string, updates map[string]interface{}) (bool, error) {
	updates["vend_claim_id"] = ""
	updates["vend_claimed_at"] = nil
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Where("order_id = ? AND vend_claim_id = ?", orderID, claimID).
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *transactionRepoImpl) MarkCancelled(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Where("order_id = ? AND status = ?", orderID, model.StatusPending).
		Updates(map[string]interface{}{
			"status":     model.StatusCancelled,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *transactionRepoImpl) SummarizeByType(ctx context.Context, from, to time.Time) ([]*model.TypeSummary, error) {
	var summaries []*model.TypeSummary
	err := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Select(`token_type,
			COUNT(*) AS count,
			COALESCE(SUM(product_amount), 0) AS nominal_total,
			COALESCE(SUM(total_payment), 0) AS payment_total`).
		Where("status = ?", model.StatusCompletedVending).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("token_type").
		Order("token_type").
		Scan(&summaries).Error

	if err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *transactionRepoImpl) CountByStatus(ctx context.Context, status model.TransactionStatus, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingTransaction{}).
		Where("status = ?", status).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error

	return count, err
}
