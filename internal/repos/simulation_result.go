package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// SimulationResultRepo is the result sink plus the source for the
// skip-if-already-simulated check. ExistingPairs returns the (persona, post)
// combinations that must not be re-simulated.
type SimulationResultRepo interface {
	CreateBulk(ctx context.Context, tx *gorm.DB, results []*types.SimulationResult) ([]*types.SimulationResult, error)
	GetByPostIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*types.SimulationResult, error)
	ExistingPairs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (map[PairKey]bool, error)
}

type PairKey struct {
	PersonaID uuid.UUID
	PostID    uuid.UUID
}

type simulationResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSimulationResultRepo(db *gorm.DB, baseLog *logger.Logger) SimulationResultRepo {
	return &simulationResultRepo{db: db, log: baseLog.With("repo", "SimulationResultRepo")}
}

func (r *simulationResultRepo) CreateBulk(ctx context.Context, tx *gorm.DB, results []*types.SimulationResult) ([]*types.SimulationResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(results) == 0 {
		return []*types.SimulationResult{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *simulationResultRepo) GetByPostIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*types.SimulationResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SimulationResult
	if len(postIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *simulationResultRepo) ExistingPairs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (map[PairKey]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	pairs := make(map[PairKey]bool)
	if len(postIDs) == 0 {
		return pairs, nil
	}
	var rows []struct {
		PersonaID uuid.UUID
		PostID    uuid.UUID
	}
	if err := transaction.WithContext(ctx).
		Model(&types.SimulationResult{}).
		Select("persona_id", "post_id").
		Where("post_id IN ?", postIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		pairs[PairKey{PersonaID: row.PersonaID, PostID: row.PostID}] = true
	}
	return pairs, nil
}
