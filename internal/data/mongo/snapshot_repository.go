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

	"github.com/dinero-ledger/internal/domain/snapshot"
)

const (
	// SnapshotCollectionName is the name of the monthly snapshot collection
	SnapshotCollectionName = "financial_snapshots"
)

func SnapshotIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "month_label", Value: -1}}, Options: options.Index().SetUnique(true)},
	}
}

// SnapshotRepository implements snapshot.Repository for MongoDB
type SnapshotRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ snapshot.Repository = (*SnapshotRepository)(nil)

func NewSnapshotRepository(logger *slog.Logger, db *mongo.Database) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert replaces the tenant's snapshot for the month.
func (r *SnapshotRepository) Upsert(ctx context.Context, s *snapshot.PeriodSnapshot) error {
	collection := r.db.Collection(SnapshotCollectionName)

	filter := bson.M{"tenant_id": s.TenantID.String(), "month_label": s.MonthLabel}
	_, err := collection.ReplaceOne(ctx, filter, newSnapshotDocument(s), options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert financial snapshot",
			"tenant_id", s.TenantID.String(),
			"month", s.MonthLabel,
			"error", err)
		return fmt.Errorf("failed to upsert financial snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, tenantID uuid.UUID, monthLabel string) (*snapshot.PeriodSnapshot, error) {
	collection := r.db.Collection(SnapshotCollectionName)

	var doc snapshotDocument
	err := collection.FindOne(ctx, bson.M{"tenant_id": tenantID.String(), "month_label": monthLabel}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, snapshot.ErrSnapshotNotFound{TenantID: tenantID, MonthLabel: monthLabel}
		}
		r.logger.Error("Failed to get financial snapshot",
			"tenant_id", tenantID.String(),
			"month", monthLabel,
			"error", err)
		return nil, fmt.Errorf("failed to get financial snapshot: %w", err)
	}
	return doc.toSnapshot()
}

// ListByTenant returns the most recent months first.
func (r *SnapshotRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*snapshot.PeriodSnapshot, error) {
	collection := r.db.Collection(SnapshotCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "month_label", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"tenant_id": tenantID.String()}, opts)
	if err != nil {
		r.logger.Error("Failed to list financial snapshots", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list financial snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []snapshotDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode financial snapshots: %w", err)
	}

	snapshots := make([]*snapshot.PeriodSnapshot, 0, len(docs))
	for _, doc := range docs {
		s, err := doc.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
