//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-relay/internal/domain/model"
	"sms-relay/internal/domain/ports/repository"
)

func TestSendLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSendLogRepo(testPool)

	t.Run("should save and list newest first", func(t *testing.T) {
		cleanup(t)
		first, _ := model.NewSendRecord("textnow", "+15551234567", 5)
		first.Finish(model.SendStatusDelivered, "client.send_sms", 1, nil)
		require.NoError(t, repo.Save(ctx, nil, first))

		time.Sleep(5 * time.Millisecond)
		second, _ := model.NewSendRecord("textnow", "+15557654321", 9)
		second.Finish(model.SendStatusFailed, "", 3, assert.AnError)
		require.NoError(t, repo.Save(ctx, nil, second))

		got, err := repo.ListRecent(ctx, nil, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, model.SendStatusFailed, got[0].Status)
		assert.Equal(t, assert.AnError.Error(), got[0].Error)
		assert.Equal(t, "client.send_sms", got[1].Used)
	})

	t.Run("should reject a duplicate id", func(t *testing.T) {
		cleanup(t)
		rec, _ := model.NewSendRecord("telegram", "42", 2)
		require.NoError(t, repo.Save(ctx, nil, rec))
		assert.Error(t, repo.Save(ctx, nil, rec))
	})

	t.Run("should honour an outer transaction", func(t *testing.T) {
		cleanup(t)
		rec, _ := model.NewSendRecord("telegram", "42", 2)
		err := NewTxManager(testPool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Save(ctx, tx, rec); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := repo.ListRecent(ctx, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("should prune old records in the same transaction as a write", func(t *testing.T) {
		cleanup(t)
		old, _ := model.NewSendRecord("textnow", "+15551234567", 5)
		old.CreatedAt = time.Now().Add(-48 * time.Hour)
		require.NoError(t, repo.Save(ctx, nil, old))

		fresh, _ := model.NewSendRecord("textnow", "+15557654321", 3)
		var pruned int64
		err := NewTxManager(testPool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Save(ctx, tx, fresh); err != nil {
				return err
			}
			var err error
			pruned, err = repo.Prune(ctx, tx, time.Now().Add(-24*time.Hour))
			return err
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, pruned)

		got, err := repo.ListRecent(ctx, nil, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, fresh.ID, got[0].ID)
	})
}
