package memory

import (
	"context"
	"sort"

	"github.com/dinero-ledger/internal/domain/outbox"
	"github.com/dinero-ledger/internal/domain/shared"
)

type outboxRepository view

func (r *outboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return view(*r).write(ctx, func(st *state) error {
		st.nextOutboxID++
		message.ID = st.nextOutboxID
		m := *message
		st.outbox[m.ID] = &m
		return nil
	})
}

func (r *outboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	pending := make([]*outbox.Message, 0)
	for _, m := range view(*r).read().outbox {
		if m.Status == shared.OutboxStatusPending {
			c := *m
			pending = append(pending, &c)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.modify(ctx, id, func(m *outbox.Message) {
		switch status {
		case shared.OutboxStatusProcessed:
			m.MarkAsProcessed()
		case shared.OutboxStatusFailedToPublish:
			m.MarkAsFailed()
		default:
			m.Status = status
		}
	})
}

func (r *outboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.modify(ctx, id, (*outbox.Message).IncrementAttempts)
}

func (r *outboxRepository) modify(ctx context.Context, id int64, change func(*outbox.Message)) error {
	return view(*r).write(ctx, func(st *state) error {
		stored, ok := st.outbox[id]
		if !ok {
			return outbox.ErrMessageNotFound{ID: id}
		}
		m := *stored
		change(&m)
		st.outbox[id] = &m
		return nil
	})
}
