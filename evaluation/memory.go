package evaluation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for single-process CLI runs and tests.
type MemoryStore struct {
	mu          sync.Mutex
	evaluations map[uuid.UUID]*Evaluation
	order       []uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		evaluations: make(map[uuid.UUID]*Evaluation),
	}
}

func (s *MemoryStore) Create(ctx context.Context, e *Evaluation) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.evaluations[e.ID] = copyEvaluation(e)
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.evaluations[id]
	if !ok {
		return nil, ErrEvaluationNotFound
	}
	return copyEvaluation(e), nil
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Most recent first.
	var out []*Evaluation
	for i := len(s.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyEvaluation(s.evaluations[s.order[i]]))
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evaluations), nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.evaluations[id]
	if !ok {
		return ErrEvaluationNotFound
	}

	updated := copyEvaluation(e)
	for _, setter := range setters {
		if err := setter(updated); err != nil {
			return err
		}
	}
	s.evaluations[id] = updated
	return nil
}

func (s *MemoryStore) ClaimNextPending(ctx context.Context) (*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		e := s.evaluations[id]
		if e.Status != StatusPending {
			continue
		}
		if err := e.Start(); err != nil {
			return nil, err
		}
		return copyEvaluation(e), nil
	}
	return nil, ErrNoPendingRuns
}

func (s *MemoryStore) Save(ctx context.Context, e *Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evaluations[e.ID]; !ok {
		return ErrEvaluationNotFound
	}
	s.evaluations[e.ID] = copyEvaluation(e)
	return nil
}

func copyEvaluation(e *Evaluation) *Evaluation {
	dup := *e
	dup.Steps = append(Steps(nil), e.Steps...)
	if e.StartedAt != nil {
		t := *e.StartedAt
		dup.StartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		dup.CompletedAt = &t
	}
	return &dup
}
