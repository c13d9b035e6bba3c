// Package mongo holds the read models fed by the outbox publisher: a
// document per posted entry and the monthly financial snapshots.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dinero-ledger/internal/domain/ledger"
)

const (
	// EntryCollectionName is the name of the posted-entry read model collection
	EntryCollectionName = "journal_entries"
)

// EntryIndexes are created at startup by the services that use the collection.
func EntryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "account_ids", Value: 1}, {Key: "entry_date", Value: -1}}},
	}
}

// EntryViewRepository mirrors posted and reversed entries for history queries.
type EntryViewRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewEntryViewRepository(logger *slog.Logger, db *mongo.Database) *EntryViewRepository {
	return &EntryViewRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert replaces the stored document unless it already holds a newer
// version of the entry. Events may arrive out of order after retries.
func (r *EntryViewRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(EntryCollectionName)

	doc := newEntryDocument(entry)
	filter := bson.M{"_id": doc.ID, "version": bson.M{"$lte": doc.Version}}
	_, err := collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipped stale entry document",
				"entry_id", doc.ID,
				"version", doc.Version)
			return nil
		}
		r.logger.Error("Failed to upsert entry document",
			"entry_id", doc.ID,
			"error", err)
		return fmt.Errorf("failed to upsert entry document: %w", err)
	}
	return nil
}

func (r *EntryViewRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(EntryCollectionName)

	var doc entryDocument
	err := collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get entry document", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get entry document: %w", err)
	}
	return doc.toEntry()
}

// ListByAccount returns the newest entries touching the account first.
func (r *EntryViewRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(EntryCollectionName)

	filter := bson.M{"account_ids": accountID.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "entry_date", Value: -1}, {Key: "posted_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to find entry documents",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to find entry documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode entry documents",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode entry documents: %w", err)
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := doc.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *EntryViewRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(EntryCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_ids": accountID.String()})
	if err != nil {
		r.logger.Error("Failed to count entry documents",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count entry documents: %w", err)
	}
	return count, nil
}
