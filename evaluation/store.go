package evaluation

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	Create(ctx context.Context, e *Evaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error)
	List(ctx context.Context, limit, offset int) ([]*Evaluation, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// ClaimNextPending atomically moves the oldest pending evaluation to
	// running and returns it. Returns ErrNoPendingRuns when the queue is
	// empty.
	ClaimNextPending(ctx context.Context) (*Evaluation, error)

	// Save persists the full record; used by the runner after traversal has
	// mutated the audit trail.
	Save(ctx context.Context, e *Evaluation) error
}

type UpdateSetter func(*Evaluation) error
