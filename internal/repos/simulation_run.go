package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type SimulationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, runs []*types.SimulationRun) ([]*types.SimulationRun, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.SimulationRun, error)
	GetLatestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string) (*types.SimulationRun, error)
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.SimulationRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	AppendProgressMessage(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type simulationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSimulationRunRepo(db *gorm.DB, baseLog *logger.Logger) SimulationRunRepo {
	return &simulationRunRepo{db: db, log: baseLog.With("repo", "SimulationRunRepo")}
}

func (r *simulationRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.SimulationRun) ([]*types.SimulationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(runs) == 0 {
		return []*types.SimulationRun{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *simulationRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.SimulationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SimulationRun
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *simulationRunRepo) GetLatestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string) (*types.SimulationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || jobType == "" {
		return nil, nil
	}
	var run types.SimulationRun
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND job_type = ?", userID, jobType).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *simulationRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.SimulationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.SimulationRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var run types.SimulationRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.RunStatusQueued, types.RunStatusFailed, maxAttempts, retryCutoff, types.RunStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.SimulationRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":       types.RunStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *simulationRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.SimulationRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AppendProgressMessage appends one human-readable line to the run's
// result.messages array. Read-modify-write inside a transaction keeps the
// sqlite dev path working where jsonb_set is unavailable.
func (r *simulationRunRepo) AppendProgressMessage(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || message == "" {
		return nil
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var run types.SimulationRun
		if err := txx.Where("id = ?", id).First(&run).Error; err != nil {
			return err
		}
		result := map[string]any{}
		if len(run.Result) > 0 {
			if err := json.Unmarshal(run.Result, &result); err != nil {
				result = map[string]any{}
			}
		}
		messages, _ := result["messages"].([]any)
		messages = append(messages, message)
		result["messages"] = messages
		raw, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return txx.Model(&types.SimulationRun{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"result":     datatypes.JSON(raw),
				"updated_at": time.Now(),
			}).Error
	})
}

func (r *simulationRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.SimulationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
