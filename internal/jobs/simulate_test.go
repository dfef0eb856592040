package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/services"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// ---- fakes ----

type fakeRunRepo struct {
	mu       sync.Mutex
	run      *types.SimulationRun
	claims   []*types.SimulationRun
	messages []string
}

func (r *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.SimulationRun) ([]*types.SimulationRun, error) {
	return runs, nil
}

func (r *fakeRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.SimulationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return nil, nil
	}
	for _, id := range ids {
		if id == r.run.ID {
			copied := *r.run
			return []*types.SimulationRun{&copied}, nil
		}
	}
	return nil, nil
}

func (r *fakeRunRepo) GetLatestByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, jobType string) (*types.SimulationRun, error) {
	return r.run, nil
}

func (r *fakeRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.SimulationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.claims) == 0 {
		return nil, nil
	}
	claimed := r.claims[0]
	r.claims = r.claims[1:]
	return claimed, nil
}

func (r *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil || r.run.ID != id {
		return nil
	}
	for key, value := range updates {
		switch key {
		case "status":
			r.run.Status = value.(string)
		case "stage":
			r.run.Stage = value.(string)
		case "progress":
			r.run.Progress = value.(int)
		case "error":
			r.run.Error = value.(string)
		case "result":
			r.run.Result = value.(datatypes.JSON)
		}
	}
	return nil
}

func (r *fakeRunRepo) AppendProgressMessage(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	if r.run == nil || r.run.ID != id {
		return nil
	}
	result := map[string]any{}
	if len(r.run.Result) > 0 {
		_ = json.Unmarshal(r.run.Result, &result)
	}
	existing, _ := result["messages"].([]any)
	existing = append(existing, message)
	result["messages"] = existing
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	r.run.Result = datatypes.JSON(raw)
	return nil
}

func (r *fakeRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakePersonaRepo struct {
	personas []*types.Persona
}

func (r *fakePersonaRepo) Create(ctx context.Context, tx *gorm.DB, personas []*types.Persona) ([]*types.Persona, error) {
	return personas, nil
}

func (r *fakePersonaRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Persona, error) {
	return r.personas, nil
}

func (r *fakePersonaRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Persona, error) {
	return r.personas, nil
}

type fakePostRepo struct {
	posts []*types.Post
}

func (r *fakePostRepo) Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	return posts, nil
}

func (r *fakePostRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Post, error) {
	return r.posts, nil
}

func (r *fakePostRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Post, error) {
	return r.posts, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return nil
}

type fakeResultRepo struct {
	mu       sync.Mutex
	existing map[repos.PairKey]bool
	stored   []*types.SimulationResult
}

func (r *fakeResultRepo) CreateBulk(ctx context.Context, tx *gorm.DB, results []*types.SimulationResult) ([]*types.SimulationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, results...)
	return results, nil
}

func (r *fakeResultRepo) GetByPostIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*types.SimulationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.SimulationResult{}, r.stored...), nil
}

func (r *fakeResultRepo) ExistingPairs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (map[repos.PairKey]bool, error) {
	if r.existing == nil {
		return map[repos.PairKey]bool{}, nil
	}
	return r.existing, nil
}

type notifierEvent struct {
	kind    string
	message string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (n *fakeNotifier) record(kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{kind: kind, message: message})
}

func (n *fakeNotifier) RunCreated(userID uuid.UUID, run *types.SimulationRun) {
	n.record("created", "")
}

func (n *fakeNotifier) RunProgress(userID uuid.UUID, run *types.SimulationRun, stage string, progress int, message string) {
	n.record("progress", message)
}

func (n *fakeNotifier) RunMessage(userID uuid.UUID, run *types.SimulationRun, message string) {
	n.record("message", message)
}

func (n *fakeNotifier) RunFailed(userID uuid.UUID, run *types.SimulationRun, stage string, errorMessage string) {
	n.record("failed", errorMessage)
}

func (n *fakeNotifier) RunDone(userID uuid.UUID, run *types.SimulationRun) {
	n.record("done", "")
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.kind)
	}
	return out
}

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type countingJudge struct {
	calls int64
}

func (j *countingJudge) Judge(ctx context.Context, persona *types.Persona, post *types.Post) (*simulation.Verdict, error) {
	atomic.AddInt64(&j.calls, 1)
	return &simulation.Verdict{
		StoppedScrolling: true,
		Liked:            true,
		Reasoning:        "relevant",
	}, nil
}

// ---- helpers ----

func newQueuedRun(userID uuid.UUID) *types.SimulationRun {
	payload, _ := json.Marshal(map[string]any{"user_id": userID.String()})
	return &types.SimulationRun{
		ID:      uuid.New(),
		UserID:  userID,
		JobType: services.JobTypeAudienceSimulation,
		Status:  types.RunStatusQueued,
		Stage:   "queued",
		Payload: datatypes.JSON(payload),
	}
}

func newJobTestPersonas(n int) []*types.Persona {
	personas := make([]*types.Persona, 0, n)
	for i := 0; i < n; i++ {
		personas = append(personas, &types.Persona{
			ID:           uuid.New(),
			Name:         fmt.Sprintf("Persona %d", i),
			BehaviorType: types.BehaviorPowerSharer,
			Platform:     "linkedin",
		})
	}
	return personas
}

func newJobTestHandler(personas []*types.Persona, posts []*types.Post, results *fakeResultRepo, judge simulation.Judge) *SimulateAudienceHandler {
	log := testLogger()
	engine := simulation.NewEngine(log, judge, simulation.DefaultCalibration(log), constRand(0.01))
	return NewSimulateAudienceHandler(
		log,
		&fakePersonaRepo{personas: personas},
		&fakePostRepo{posts: posts},
		results,
		engine,
	)
}

// ---- tests ----

func TestSimulateAudienceHandler_SimulatesAllPairs(t *testing.T) {
	userID := uuid.New()
	personas := newJobTestPersonas(2)
	posts := []*types.Post{
		{ID: uuid.New(), Content: "a", VariationNumber: 0},
		{ID: uuid.New(), Content: "b", VariationNumber: 1},
	}
	results := &fakeResultRepo{}
	judge := &countingJudge{}

	runRepo := &fakeRunRepo{run: newQueuedRun(userID)}
	notifier := &fakeNotifier{}
	jc := NewContext(context.Background(), nil, runRepo.run, runRepo, notifier)

	newJobTestHandler(personas, posts, results, judge).Run(jc)

	if got := atomic.LoadInt64(&judge.calls); got != 4 {
		t.Fatalf("expected 4 judge calls, got %d", got)
	}
	if len(results.stored) != 4 {
		t.Fatalf("expected 4 stored results, got %d", len(results.stored))
	}
	if runRepo.run.Status != types.RunStatusSucceeded {
		t.Fatalf("expected succeeded run, got %q (error %q)", runRepo.run.Status, runRepo.run.Error)
	}
	if runRepo.run.Progress != 100 || runRepo.run.Stage != "done" {
		t.Fatalf("expected progress 100 / stage done, got %d / %q", runRepo.run.Progress, runRepo.run.Stage)
	}

	var doc map[string]any
	if err := json.Unmarshal(runRepo.run.Result, &doc); err != nil {
		t.Fatalf("result document did not parse: %v", err)
	}
	if doc["pairs_total"].(float64) != 4 || doc["pairs_skipped"].(float64) != 0 {
		t.Fatalf("unexpected pair counts in result: %v", doc)
	}
	if _, ok := doc["ranking"]; !ok {
		t.Fatalf("expected ranking in result document")
	}
	if _, ok := doc["winner"]; !ok {
		t.Fatalf("expected winner in result document")
	}
	if _, ok := doc["messages"]; !ok {
		t.Fatalf("expected accumulated messages to survive completion")
	}
}

func TestSimulateAudienceHandler_SkipsAlreadySimulatedPairs(t *testing.T) {
	userID := uuid.New()
	personas := newJobTestPersonas(2)
	post := &types.Post{ID: uuid.New(), Content: "a", VariationNumber: 0}

	existing := map[repos.PairKey]bool{}
	stored := make([]*types.SimulationResult, 0, len(personas))
	for _, persona := range personas {
		existing[repos.PairKey{PersonaID: persona.ID, PostID: post.ID}] = true
		stored = append(stored, &types.SimulationResult{
			PersonaID:       persona.ID,
			PostID:          post.ID,
			Liked:           true,
			EngagementScore: 1,
		})
	}
	results := &fakeResultRepo{existing: existing, stored: stored}
	judge := &countingJudge{}

	runRepo := &fakeRunRepo{run: newQueuedRun(userID)}
	jc := NewContext(context.Background(), nil, runRepo.run, runRepo, &fakeNotifier{})

	newJobTestHandler(personas, []*types.Post{post}, results, judge).Run(jc)

	if got := atomic.LoadInt64(&judge.calls); got != 0 {
		t.Fatalf("expected 0 judge calls when every pair is covered, got %d", got)
	}
	if len(results.stored) != 2 {
		t.Fatalf("no new results should be written, got %d", len(results.stored))
	}
	if runRepo.run.Status != types.RunStatusSucceeded {
		t.Fatalf("expected succeeded run, got %q", runRepo.run.Status)
	}

	var doc map[string]any
	if err := json.Unmarshal(runRepo.run.Result, &doc); err != nil {
		t.Fatalf("result document did not parse: %v", err)
	}
	if doc["pairs_skipped"].(float64) != 2 || doc["pairs_simulated"].(float64) != 0 {
		t.Fatalf("unexpected pair counts: %v", doc)
	}
}

func TestSimulateAudienceHandler_RegenerationSimulatesOnlyFreshPost(t *testing.T) {
	userID := uuid.New()
	personas := newJobTestPersonas(4)
	carried := &types.Post{ID: uuid.New(), Content: "carried over", VariationNumber: 0}
	fresh := &types.Post{ID: uuid.New(), Content: "new variation", VariationNumber: 1}

	// The carried post already has a full set of results from an earlier run.
	existing := map[repos.PairKey]bool{}
	stored := make([]*types.SimulationResult, 0, len(personas))
	for _, persona := range personas {
		existing[repos.PairKey{PersonaID: persona.ID, PostID: carried.ID}] = true
		stored = append(stored, &types.SimulationResult{
			PersonaID:       persona.ID,
			PostID:          carried.ID,
			Liked:           true,
			EngagementScore: 1,
		})
	}
	results := &fakeResultRepo{existing: existing, stored: stored}
	judge := &countingJudge{}

	runRepo := &fakeRunRepo{run: newQueuedRun(userID)}
	jc := NewContext(context.Background(), nil, runRepo.run, runRepo, &fakeNotifier{})

	newJobTestHandler(personas, []*types.Post{carried, fresh}, results, judge).Run(jc)

	if got := atomic.LoadInt64(&judge.calls); got != 4 {
		t.Fatalf("expected 4 judge calls for the fresh post only, got %d", got)
	}
	if len(results.stored) != 8 {
		t.Fatalf("expected 8 total stored results (4 carried + 4 new), got %d", len(results.stored))
	}
	for _, result := range results.stored[4:] {
		if result.PostID != fresh.ID {
			t.Fatalf("new result written for the wrong post")
		}
	}
	if runRepo.run.Status != types.RunStatusSucceeded {
		t.Fatalf("expected succeeded run, got %q (error %q)", runRepo.run.Status, runRepo.run.Error)
	}

	var doc map[string]any
	if err := json.Unmarshal(runRepo.run.Result, &doc); err != nil {
		t.Fatalf("result document did not parse: %v", err)
	}
	if doc["pairs_total"].(float64) != 8 || doc["pairs_skipped"].(float64) != 4 || doc["pairs_simulated"].(float64) != 4 {
		t.Fatalf("unexpected pair counts: %v", doc)
	}
	ranking, ok := doc["ranking"].([]any)
	if !ok || len(ranking) != 2 {
		t.Fatalf("expected ranking over both posts, got %v", doc["ranking"])
	}
	// Both posts must be aggregated from the merged stored results.
	rankedIDs := map[string]bool{}
	for _, entry := range ranking {
		post := entry.(map[string]any)["post"].(map[string]any)
		rankedIDs[post["id"].(string)] = true
	}
	if !rankedIDs[carried.ID.String()] || !rankedIDs[fresh.ID.String()] {
		t.Fatalf("ranking missing a post: %v", rankedIDs)
	}
}

func TestSimulateAudienceHandler_FailsOnEmptyPanel(t *testing.T) {
	userID := uuid.New()
	runRepo := &fakeRunRepo{run: newQueuedRun(userID)}
	notifier := &fakeNotifier{}
	jc := NewContext(context.Background(), nil, runRepo.run, runRepo, notifier)

	post := &types.Post{ID: uuid.New(), Content: "a"}
	newJobTestHandler(nil, []*types.Post{post}, &fakeResultRepo{}, &countingJudge{}).Run(jc)

	if runRepo.run.Status != types.RunStatusFailed {
		t.Fatalf("expected failed run, got %q", runRepo.run.Status)
	}
	if runRepo.run.Error == "" {
		t.Fatalf("expected error recorded on run")
	}
	sawFailed := false
	for _, kind := range notifier.kinds() {
		if kind == "failed" {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Fatalf("expected a failure notification")
	}
}

func TestWorker_DispatchesClaimedRunToHandler(t *testing.T) {
	userID := uuid.New()
	run := newQueuedRun(userID)
	runRepo := &fakeRunRepo{run: run, claims: []*types.SimulationRun{run}}
	notifier := &fakeNotifier{}

	personas := newJobTestPersonas(1)
	post := &types.Post{ID: uuid.New(), Content: "a"}
	registry := NewRegistry()
	registry.Register(services.JobTypeAudienceSimulation, newJobTestHandler(personas, []*types.Post{post}, &fakeResultRepo{}, &countingJudge{}))

	worker := NewWorker(nil, testLogger(), runRepo, registry, notifier)
	if !worker.claimAndRun(context.Background()) {
		t.Fatalf("expected a run to be claimed")
	}
	if runRepo.run.Status != types.RunStatusSucceeded {
		t.Fatalf("expected succeeded run after dispatch, got %q", runRepo.run.Status)
	}
	if worker.claimAndRun(context.Background()) {
		t.Fatalf("expected no further claimable runs")
	}
}

func TestWorker_FailsRunWithoutRegisteredHandler(t *testing.T) {
	userID := uuid.New()
	run := newQueuedRun(userID)
	run.JobType = "unknown_job"
	runRepo := &fakeRunRepo{run: run, claims: []*types.SimulationRun{run}}

	worker := NewWorker(nil, testLogger(), runRepo, NewRegistry(), &fakeNotifier{})
	if !worker.claimAndRun(context.Background()) {
		t.Fatalf("expected the run to be claimed")
	}
	if runRepo.run.Status != types.RunStatusFailed {
		t.Fatalf("expected failed run for unknown job type, got %q", runRepo.run.Status)
	}
}
