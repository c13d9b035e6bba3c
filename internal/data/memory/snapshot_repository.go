package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/snapshot"
)

// SnapshotRepository keeps period snapshots in memory. Snapshots are
// derived data, so it lives outside the transactional state.
type SnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[codeKey]*snapshot.PeriodSnapshot
}

var _ snapshot.Repository = (*SnapshotRepository)(nil)

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{snapshots: make(map[codeKey]*snapshot.PeriodSnapshot)}
}

func (r *SnapshotRepository) Upsert(_ context.Context, s *snapshot.PeriodSnapshot) error {
	c := *s
	r.mu.Lock()
	r.snapshots[codeKey{tenantID: s.TenantID, code: s.MonthLabel}] = &c
	r.mu.Unlock()
	return nil
}

func (r *SnapshotRepository) Get(_ context.Context, tenantID uuid.UUID, monthLabel string) (*snapshot.PeriodSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[codeKey{tenantID: tenantID, code: monthLabel}]
	if !ok {
		return nil, snapshot.ErrSnapshotNotFound{TenantID: tenantID, MonthLabel: monthLabel}
	}
	c := *s
	return &c, nil
}

// ListByTenant returns the newest months first.
func (r *SnapshotRepository) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]*snapshot.PeriodSnapshot, error) {
	r.mu.RLock()
	var list []*snapshot.PeriodSnapshot
	for k, s := range r.snapshots {
		if k.tenantID == tenantID {
			c := *s
			list = append(list, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].MonthLabel > list[j].MonthLabel })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}
