package mongo

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/dinero-ledger/internal/domain/ledger"
	"github.com/dinero-ledger/internal/domain/snapshot"
)

func toD(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func TestEntryViewRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("upsert", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(t, repo.Upsert(ctx, postedEntry()))
	})

	mt.Run("upsert of a stale version is skipped", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		assert.NoError(t, repo.Upsert(ctx, postedEntry()))
	})

	mt.Run("upsert failure", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		err := repo.Upsert(ctx, postedEntry())
		assert.ErrorContains(t, err, "failed to upsert entry document")
	})

	mt.Run("get", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		entry := postedEntry()
		ns := mt.DB.Name() + "." + EntryCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toD(t, newEntryDocument(entry))))

		got, err := repo.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, entry.Reference, got.Reference)
		assert.True(t, got.Lines[0].Amount.Equal(entry.Lines[0].Amount))
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		ns := mt.DB.Name() + "." + EntryCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		id := uuid.New()
		_, err := repo.Get(ctx, id)
		assert.ErrorIs(t, err, ledger.ErrEntryNotFound{EntryID: id})
	})

	mt.Run("list by account", func(mt *mtest.T) {
		repo := NewEntryViewRepository(slog.Default(), mt.DB)
		a, b := postedEntry(), postedEntry()
		ns := mt.DB.Name() + "." + EntryCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			toD(t, newEntryDocument(a)), toD(t, newEntryDocument(b))))

		entries, err := repo.ListByAccount(ctx, a.Lines[0].AccountID, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, a.ID, entries[0].ID)
	})
}

func TestSnapshotRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewSnapshotRepository(slog.Default(), mt.DB)
		ns := mt.DB.Name() + "." + SnapshotCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		tenantID := uuid.New()
		_, err := repo.Get(ctx, tenantID, "2026-01")
		var notFound snapshot.ErrSnapshotNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "2026-01", notFound.MonthLabel)
	})

	mt.Run("upsert then list", func(mt *mtest.T) {
		repo := NewSnapshotRepository(slog.Default(), mt.DB)
		tenantID := uuid.New()
		s := &snapshot.PeriodSnapshot{TenantID: tenantID, MonthLabel: "2026-01"}
		ns := mt.DB.Name() + "." + SnapshotCollectionName

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toD(t, newSnapshotDocument(s))),
		)

		require.NoError(t, repo.Upsert(ctx, s))
		list, err := repo.ListByTenant(ctx, tenantID, 12)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "2026-01", list[0].MonthLabel)
		assert.True(t, list[0].Revenue.IsZero())
	})
}
