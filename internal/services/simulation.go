package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

const JobTypeAudienceSimulation = "audience_simulation"

// SimulationService is the API-facing surface: it validates and enqueues
// runs and serves status/rankings. The actual simulation happens on the job
// worker.
type SimulationService interface {
	EnqueueRun(ctx context.Context, userID uuid.UUID) (*types.SimulationRun, error)
	GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.SimulationRun, error)
	GetRanking(ctx context.Context, userID uuid.UUID) ([]simulation.RankedPost, error)
}

type simulationService struct {
	db       *gorm.DB
	log      *logger.Logger
	personas repos.PersonaRepo
	posts    repos.PostRepo
	results  repos.SimulationResultRepo
	runs     repos.SimulationRunRepo
	notify   SimulationNotifier
}

func NewSimulationService(
	db *gorm.DB,
	log *logger.Logger,
	personas repos.PersonaRepo,
	posts repos.PostRepo,
	results repos.SimulationResultRepo,
	runs repos.SimulationRunRepo,
	notify SimulationNotifier,
) SimulationService {
	return &simulationService{
		db:       db,
		log:      log.With("service", "SimulationService"),
		personas: personas,
		posts:    posts,
		results:  results,
		runs:     runs,
		notify:   notify,
	}
}

// EnqueueRun rejects empty inputs up front; the engine itself assumes a
// non-empty panel and post set.
func (s *simulationService) EnqueueRun(ctx context.Context, userID uuid.UUID) (*types.SimulationRun, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	panel, err := s.personas.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	if len(panel) == 0 {
		return nil, fmt.Errorf("no audience personas exist for this user")
	}
	posts, err := s.posts.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("no posts exist for this user")
	}

	payload, err := json.Marshal(map[string]any{"user_id": userID.String()})
	if err != nil {
		return nil, err
	}
	run := &types.SimulationRun{
		ID:      uuid.New(),
		UserID:  userID,
		JobType: JobTypeAudienceSimulation,
		Status:  types.RunStatusQueued,
		Stage:   "queued",
		Payload: datatypes.JSON(payload),
	}
	if _, err := s.runs.Create(ctx, nil, []*types.SimulationRun{run}); err != nil {
		return nil, fmt.Errorf("enqueue simulation run: %w", err)
	}
	s.notify.RunCreated(userID, run)
	s.log.Info("Simulation run enqueued", "run_id", run.ID, "user_id", userID, "personas", len(panel), "posts", len(posts))
	return run, nil
}

func (s *simulationService) GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.SimulationRun, error) {
	runs, err := s.runs.GetByIDs(ctx, nil, []uuid.UUID{runID})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 || runs[0].UserID != userID {
		return nil, fmt.Errorf("run not found")
	}
	return runs[0], nil
}

// GetRanking recomputes summaries from the stored result rows on demand.
func (s *simulationService) GetRanking(ctx context.Context, userID uuid.UUID) ([]simulation.RankedPost, error) {
	posts, err := s.posts.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(posts) == 0 {
		return []simulation.RankedPost{}, nil
	}
	postIDs := make([]uuid.UUID, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
	}
	results, err := s.results.GetByPostIDs(ctx, nil, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load simulation results: %w", err)
	}
	resultsByPost := make(map[uuid.UUID][]*types.SimulationResult, len(posts))
	for _, result := range results {
		resultsByPost[result.PostID] = append(resultsByPost[result.PostID], result)
	}
	return simulation.Rank(posts, resultsByPost), nil
}
