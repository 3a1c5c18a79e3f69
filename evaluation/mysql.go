package evaluation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/draphael123/Evaluation-Tracker/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed evaluation store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new evaluation in the database.
func (s *MySQLStore) Create(ctx context.Context, e *Evaluation) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		s.logger.Error(ctx, "failed to create evaluation", map[string]interface{}{
			"error":        err.Error(),
			"website_name": e.WebsiteName,
		})
		return err
	}

	s.logger.Info(ctx, "evaluation created", map[string]interface{}{
		"evaluation_id": e.ID.String(),
		"website_name":  e.WebsiteName,
	})

	return nil
}

// GetByID retrieves an evaluation by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	var e Evaluation
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&e).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		s.logger.Error(ctx, "failed to get evaluation by ID", map[string]interface{}{
			"error":         err.Error(),
			"evaluation_id": id.String(),
		})
		return nil, err
	}

	return &e, nil
}

// List retrieves a paginated list of evaluations, most recent first.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*Evaluation, error) {
	var evaluations []*Evaluation
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&evaluations).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list evaluations", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}

	return evaluations, nil
}

// Count returns the total number of evaluations.
func (s *MySQLStore) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Evaluation{}).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count evaluations", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	return int(count), nil
}

// Update updates an evaluation with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(e); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		s.logger.Error(ctx, "failed to update evaluation", map[string]interface{}{
			"error":         err.Error(),
			"evaluation_id": id.String(),
		})
		return err
	}

	return nil
}

// ClaimNextPending locks the oldest pending row, flips it to running, and
// returns it. Row locking keeps concurrent runners from claiming the same
// evaluation.
func (s *MySQLStore) ClaimNextPending(ctx context.Context) (*Evaluation, error) {
	var claimed *Evaluation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite (used in tests) does not support SELECT ... FOR UPDATE.
		if tx.Dialector.Name() == "mysql" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var e Evaluation
		err := query.
			Where("status = ?", StatusPending).
			Order("created_at ASC").
			First(&e).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoPendingRuns
			}
			return err
		}

		if err := e.Start(); err != nil {
			return err
		}
		if err := tx.Save(&e).Error; err != nil {
			return err
		}

		claimed = &e
		return nil
	})

	if err != nil {
		if !errors.Is(err, ErrNoPendingRuns) {
			s.logger.Error(ctx, "failed to claim pending evaluation", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, err
	}

	s.logger.Info(ctx, "evaluation claimed", map[string]interface{}{
		"evaluation_id": claimed.ID.String(),
	})

	return claimed, nil
}

// Save persists the full record.
func (s *MySQLStore) Save(ctx context.Context, e *Evaluation) error {
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		s.logger.Error(ctx, "failed to save evaluation", map[string]interface{}{
			"error":         err.Error(),
			"evaluation_id": e.ID.String(),
		})
		return err
	}

	s.logger.Info(ctx, "evaluation saved", map[string]interface{}{
		"evaluation_id": e.ID.String(),
		"status":        string(e.Status),
	})

	return nil
}
