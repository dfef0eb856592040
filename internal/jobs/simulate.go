package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/services"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// SimulateAudienceHandler executes one audience_simulation run: expand the
// persona/post cross product, skip pairs already simulated on earlier runs,
// judge the rest in batches and persist a ranking into the run result.
type SimulateAudienceHandler struct {
	log      *logger.Logger
	personas repos.PersonaRepo
	posts    repos.PostRepo
	results  repos.SimulationResultRepo
	engine   *simulation.Engine
}

func NewSimulateAudienceHandler(
	log *logger.Logger,
	personas repos.PersonaRepo,
	posts repos.PostRepo,
	results repos.SimulationResultRepo,
	engine *simulation.Engine,
) *SimulateAudienceHandler {
	return &SimulateAudienceHandler{
		log:      log.With("handler", services.JobTypeAudienceSimulation),
		personas: personas,
		posts:    posts,
		results:  results,
		engine:   engine,
	}
}

// contextSink adapts the job context's message log to the engine's progress
// sink.
type contextSink struct{ jc *Context }

func (s *contextSink) Append(message string) { s.jc.Message(message) }

func (h *SimulateAudienceHandler) Run(jc *Context) {
	ctx := jc.Ctx

	userID := jc.PayloadUUID("user_id")
	if userID == uuid.Nil {
		userID = jc.Run.UserID
	}
	if userID == uuid.Nil {
		jc.Fail("load", fmt.Errorf("run payload has no user id"))
		return
	}

	jc.Progress("load", 5, "Loading audience panel and posts")

	panel, err := h.personas.GetByUser(ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load", fmt.Errorf("load personas: %w", err))
		return
	}
	posts, err := h.posts.GetByUser(ctx, jc.DB, userID)
	if err != nil {
		jc.Fail("load", fmt.Errorf("load posts: %w", err))
		return
	}
	// Enqueue validates these too, but runs can be retried long after the
	// user's data changed.
	if len(panel) == 0 {
		jc.Fail("load", fmt.Errorf("no audience personas exist for this user"))
		return
	}
	if len(posts) == 0 {
		jc.Fail("load", fmt.Errorf("no posts exist for this user"))
		return
	}

	postIDs := make([]uuid.UUID, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
	}

	existing, err := h.results.ExistingPairs(ctx, jc.DB, postIDs)
	if err != nil {
		jc.Fail("load", fmt.Errorf("load existing simulation pairs: %w", err))
		return
	}

	allPairs := simulation.BuildPairs(panel, posts)
	pending := make([]simulation.Pair, 0, len(allPairs))
	for _, pair := range allPairs {
		if existing[repos.PairKey{PersonaID: pair.Persona.ID, PostID: pair.Post.ID}] {
			continue
		}
		pending = append(pending, pair)
	}
	skipped := len(allPairs) - len(pending)
	if skipped > 0 {
		jc.Message(fmt.Sprintf("Skipping %d already simulated pairs", skipped))
	}

	if len(pending) > 0 {
		jc.Progress("simulate", 10, fmt.Sprintf("Simulating %d persona/post pairs", len(pending)))
		newResults := h.engine.SimulatePairs(ctx, pending, &contextSink{jc: jc})
		if _, err := h.results.CreateBulk(ctx, jc.DB, newResults); err != nil {
			jc.Fail("simulate", fmt.Errorf("save simulation results: %w", err))
			return
		}
	} else {
		jc.Message("All pairs were simulated on a previous run")
	}

	jc.Progress("aggregate", 90, "Ranking posts by engagement")

	stored, err := h.results.GetByPostIDs(ctx, jc.DB, postIDs)
	if err != nil {
		jc.Fail("aggregate", fmt.Errorf("load simulation results: %w", err))
		return
	}
	resultsByPost := make(map[uuid.UUID][]*types.SimulationResult, len(posts))
	for _, result := range stored {
		resultsByPost[result.PostID] = append(resultsByPost[result.PostID], result)
	}
	ranked := simulation.Rank(posts, resultsByPost)
	if len(ranked) == 0 {
		jc.Fail("aggregate", fmt.Errorf("ranking produced no posts"))
		return
	}

	winner := ranked[0]
	jc.Message(fmt.Sprintf("Top performer: %s with %.0f%% engagement", winner.Label, winner.EngagementRate*100))

	jc.Done(map[string]any{
		"ranking": ranked,
		"winner": map[string]any{
			"post_id":                winner.Post.ID,
			"label":                  winner.Label,
			"engagement_rate":        winner.EngagementRate,
			"total_engagement_score": winner.Summary.TotalEngagementScore,
		},
		"pairs_total":     len(allPairs),
		"pairs_simulated": len(pending),
		"pairs_skipped":   skipped,
	})
	h.log.Info("Audience simulation completed",
		"run_id", jc.Run.ID,
		"user_id", userID,
		"pairs_total", len(allPairs),
		"pairs_simulated", len(pending),
	)
}
