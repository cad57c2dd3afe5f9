package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"token-vending-service/internal/client"
	"token-vending-service/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newSqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDBClient("sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func seedTransaction(t *testing.T, repo TransactionRepository, orderID string, status model.TransactionStatus) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &model.PendingTransaction{
		OrderID:             orderID,
		Status:              status,
		Gateway:             model.GatewayMidtrans,
		CustomerID:          "cust-1",
		ServiceIDForVending: "METER-001",
		TokenType:           "electricity",
		ProductAmount:       decimal.NewFromInt(20000),
		TotalPayment:        decimal.NewFromInt(20000),
	}))
}

func TestClaimForVending_LeaseLifecycle(t *testing.T) {
	repo := NewTransactionRepository(newSqliteDB(t))
	ctx := context.Background()
	seedTransaction(t, repo, "TKN-1", model.StatusPending)

	now := time.Now().UTC()
	stale := now.Add(-2 * time.Minute)

	ok, err := repo.ClaimForVending(ctx, "TKN-1", "claim-a", now, stale)
	require.NoError(t, err)
	assert.True(t, ok)

	// a live lease blocks a second claimer
	ok, err = repo.ClaimForVending(ctx, "TKN-1", "claim-b", now.Add(time.Second), stale.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	txn, err := repo.FindByOrderID(ctx, "TKN-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, txn.Status)
	assert.Equal(t, "claim-a", txn.VendClaimID)
	assert.Equal(t, 1, txn.VendingAttempts)
	require.NotNil(t, txn.PaidAt)

	// only the lease holder may release
	ok, err = repo.MarkVended(ctx, "TKN-1", "claim-b", "1111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkVended(ctx, "TKN-1", "claim-a", "1111")
	require.NoError(t, err)
	assert.True(t, ok)

	txn, err = repo.FindByOrderID(ctx, "TKN-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompletedVending, txn.Status)
	assert.Equal(t, "1111", txn.GeneratedTokenCode)
	assert.Empty(t, txn.VendClaimID)
	assert.Nil(t, txn.VendClaimedAt)

	// completed is terminal
	ok, err = repo.ClaimForVending(ctx, "TKN-1", "claim-c", now.Add(time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimForVending_StaleLeaseIsTakenOver(t *testing.T) {
	repo := NewTransactionRepository(newSqliteDB(t))
	ctx := context.Background()
	seedTransaction(t, repo, "TKN-2", model.StatusPending)

	start := time.Now().UTC().Add(-10 * time.Minute)
	ok, err := repo.ClaimForVending(ctx, "TKN-2", "claim-a", start, start.Add(-2*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	now := time.Now().UTC()
	ok, err = repo.ClaimForVending(ctx, "TKN-2", "claim-b", now, now.Add(-2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkVendFailed(ctx, "TKN-2", "claim-a", "late")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkVendFailed(ctx, "TKN-2", "claim-b", "provider down")
	require.NoError(t, err)
	assert.True(t, ok)

	txn, err := repo.FindByOrderID(ctx, "TKN-2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailedVending, txn.Status)
	assert.Equal(t, "provider down", txn.LastVendingError)
	assert.Equal(t, 2, txn.VendingAttempts)
}

func TestClaimForVending_CancelledIsNotSettleable(t *testing.T) {
	repo := NewTransactionRepository(newSqliteDB(t))
	seedTransaction(t, repo, "TKN-3", model.StatusCancelled)

	now := time.Now().UTC()
	ok, err := repo.ClaimForVending(context.Background(), "TKN-3", "claim-a", now, now.Add(-2*time.Minute))

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkCancelled_OnlyTouchesPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `pending_transactions` SET `status`=?,`updated_at`=? WHERE")).
		WithArgs("cancelled", sqlmock.AnyArg(), "TKN-9", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MarkCancelled(context.Background(), "TKN-9")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelled_NoRowIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `pending_transactions` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.MarkCancelled(context.Background(), "TKN-10")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGatewayResult_UnknownOrder(t *testing.T) {
	repo := NewTransactionRepository(newSqliteDB(t))

	err := repo.SaveGatewayResult(context.Background(), "TKN-missing", "tok", "https://pay", []byte(`{}`))

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWebhookRecord_Dedupes(t *testing.T) {
	db := newSqliteDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	event := func() *model.WebhookEvent {
		return &model.WebhookEvent{EventID: "midtrans:trx-1:settlement", Gateway: model.GatewayMidtrans, OrderID: "TKN-1"}
	}

	first, err := repo.Record(ctx, event())
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Record(ctx, event())
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, repo.MarkProcessed(ctx, "midtrans:trx-1:settlement", model.WebhookEventHandled, ""))
	var stored model.WebhookEvent
	require.NoError(t, db.Where("event_id = ?", "midtrans:trx-1:settlement").First(&stored).Error)
	assert.Equal(t, model.WebhookEventHandled, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}
