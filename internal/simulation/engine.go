package simulation

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// Verdict is the judge's qualitative read on one (persona, post) pair.
// It is noisy and tends toward enthusiasm, which is why every positive
// answer still has to pass a calibrated gate before it becomes an action.
type Verdict struct {
	StoppedScrolling bool
	Liked            bool
	Commented        bool
	Shared           bool
	CommentText      string
	Reasoning        string
}

// Judge produces a Verdict for a persona looking at a post. Implementations
// own their timeout; a call that errors out is degraded per pair, never
// escalated to the batch.
type Judge interface {
	Judge(ctx context.Context, persona *types.Persona, post *types.Post) (*Verdict, error)
}

// ProgressSink receives human-readable progress lines during a run. Passed
// explicitly rather than pulled from ambient state so the engine stays
// testable without any global hook.
type ProgressSink interface {
	Append(message string)
}

// Engagement score weights. Shares are the rarest, highest-effort action and
// are valued accordingly.
const (
	likeWeight    = 1
	commentWeight = 3
	shareWeight   = 5
)

// DefaultBatchSize bounds concurrent judge calls; batches run fully before
// the next one starts.
const DefaultBatchSize = 8

const (
	failedReasoning        = "Simulation could not be completed"
	scrollSuppressedPrefix = "Glanced but kept scrolling: "
)

// Pair is one unit of simulation work.
type Pair struct {
	Persona *types.Persona
	Post    *types.Post
}

type Engine struct {
	log         *logger.Logger
	judge       Judge
	calibration *Calibration
	random      Rand
	batchSize   int
}

func NewEngine(log *logger.Logger, judge Judge, calibration *Calibration, random Rand) *Engine {
	return &Engine{
		log:         log.With("component", "SimulationEngine"),
		judge:       judge,
		calibration: calibration,
		random:      random,
		batchSize:   DefaultBatchSize,
	}
}

// WithBatchSize overrides the batch size; values < 1 are ignored.
func (e *Engine) WithBatchSize(n int) *Engine {
	if n >= 1 {
		e.batchSize = n
	}
	return e
}

// Simulate judges one pair and converts the verdict into a final result via
// the two-stage model: the judge decides whether the persona *would* act,
// the behavior type's gates decide whether it actually *does*. The stop gate
// dominates; like, comment and share are then drawn independently, so a
// single persona can do all three to the same post.
func (e *Engine) Simulate(ctx context.Context, persona *types.Persona, post *types.Post) *types.SimulationResult {
	verdict, err := e.judge.Judge(ctx, persona, post)
	if err != nil || verdict == nil {
		e.log.Warn("Judge call failed, recording negative result",
			"persona_id", persona.ID,
			"post_id", post.ID,
			"error", err,
		)
		return &types.SimulationResult{
			PersonaID: persona.ID,
			PostID:    post.ID,
			Reasoning: failedReasoning,
		}
	}

	gates := e.calibration.Profile(persona.BehaviorType).Gates

	stopped := verdict.StoppedScrolling && e.random.Float64() < gates.Stop
	liked := stopped && verdict.Liked && e.random.Float64() < gates.Like
	commented := stopped && verdict.Commented && e.random.Float64() < gates.Comment
	shared := stopped && verdict.Shared && e.random.Float64() < gates.Share

	reasoning := verdict.Reasoning
	if verdict.StoppedScrolling && !stopped {
		// Distinguish gate-suppressed interest from genuine disinterest.
		reasoning = scrollSuppressedPrefix + reasoning
	}

	var commentText *string
	if commented && verdict.CommentText != "" {
		text := verdict.CommentText
		commentText = &text
	}

	return &types.SimulationResult{
		PersonaID:       persona.ID,
		PostID:          post.ID,
		Liked:           liked,
		Commented:       commented,
		Shared:          shared,
		CommentText:     commentText,
		Reasoning:       reasoning,
		EngagementScore: engagementScore(liked, commented, shared),
	}
}

func engagementScore(liked, commented, shared bool) int {
	score := 0
	if liked {
		score += likeWeight
	}
	if commented {
		score += commentWeight
	}
	if shared {
		score += shareWeight
	}
	return score
}

// BuildPairs expands the full (persona, post) cross product in panel order.
func BuildPairs(personas []*types.Persona, posts []*types.Post) []Pair {
	pairs := make([]Pair, 0, len(personas)*len(posts))
	for _, post := range posts {
		for _, persona := range personas {
			pairs = append(pairs, Pair{Persona: persona, Post: post})
		}
	}
	return pairs
}

// RunFullSimulation simulates the whole cross product. Callers that need the
// skip-if-already-simulated behavior filter the pairs first and call
// SimulatePairs directly.
func (e *Engine) RunFullSimulation(ctx context.Context, personas []*types.Persona, posts []*types.Post, progress ProgressSink) []*types.SimulationResult {
	return e.SimulatePairs(ctx, BuildPairs(personas, posts), progress)
}

// SimulatePairs runs pairs in fixed-size batches. Within a batch every pair
// is judged concurrently; the batch joins fully before the next one starts.
// Each pair writes its own slot, so the result slice needs no locking and
// every submitted pair appears exactly once. Individual judge failures have
// already been degraded inside Simulate and never abort the run.
func (e *Engine) SimulatePairs(ctx context.Context, pairs []Pair, progress ProgressSink) []*types.SimulationResult {
	results := make([]*types.SimulationResult, len(pairs))
	total := len(pairs)

	for start := 0; start < total; start += e.batchSize {
		end := start + e.batchSize
		if end > total {
			end = total
		}
		batch := pairs[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			idx := start + i
			pair := batch[i]
			g.Go(func() error {
				results[idx] = e.Simulate(gctx, pair.Persona, pair.Post)
				return nil
			})
		}
		_ = g.Wait()

		e.reportBatch(progress, batch, results[start:end], end, total)
	}

	return results
}

func (e *Engine) reportBatch(progress ProgressSink, batch []Pair, batchResults []*types.SimulationResult, completed, total int) {
	if progress == nil || total == 0 {
		return
	}

	seen := make(map[string]bool, len(batch))
	names := make([]string, 0, len(batch))
	for _, pair := range batch {
		if !seen[pair.Persona.Name] {
			seen[pair.Persona.Name] = true
			names = append(names, pair.Persona.Name)
		}
	}
	progress.Append(fmt.Sprintf("Audience reactions in: %s", strings.Join(names, ", ")))

	for i, result := range batchResults {
		if result == nil || (!result.Liked && !result.Commented && !result.Shared) {
			continue
		}
		progress.Append(fmt.Sprintf("%s %s %s",
			batch[i].Persona.Name,
			actionPhrase(result.Liked, result.Commented, result.Shared),
			PostLabel(batch[i].Post),
		))
	}

	pct := completed * 100 / total
	progress.Append(fmt.Sprintf("Simulated %d/%d pairs (%d%%)", completed, total, pct))
}

func actionPhrase(liked, commented, shared bool) string {
	actions := make([]string, 0, 3)
	if liked {
		actions = append(actions, "liked")
	}
	if commented {
		actions = append(actions, "commented on")
	}
	if shared {
		actions = append(actions, "shared")
	}
	switch len(actions) {
	case 1:
		return actions[0]
	case 2:
		return actions[0] + " and " + actions[1]
	default:
		return strings.Join(actions[:len(actions)-1], ", ") + " and " + actions[len(actions)-1]
	}
}
