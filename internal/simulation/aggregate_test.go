package simulation

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/types"
)

func result(postID uuid.UUID, liked, commented, shared bool) *types.SimulationResult {
	return &types.SimulationResult{
		PersonaID:       uuid.New(),
		PostID:          postID,
		Liked:           liked,
		Commented:       commented,
		Shared:          shared,
		EngagementScore: engagementScore(liked, commented, shared),
	}
}

func TestSummarize_CountsActionsAndScore(t *testing.T) {
	postID := uuid.New()
	results := []*types.SimulationResult{
		result(postID, true, true, true),   // 9
		result(postID, true, false, false), // 1
		result(postID, false, false, false),
		result(uuid.New(), true, true, true), // other post, ignored
	}

	summary := Summarize(postID, results)
	if summary.SimulationCount != 3 {
		t.Fatalf("expected 3 simulations counted, got %d", summary.SimulationCount)
	}
	if summary.TotalLikes != 2 || summary.TotalComments != 1 || summary.TotalShares != 1 {
		t.Fatalf("unexpected action counts: %+v", summary)
	}
	if summary.TotalEngagementScore != 10 {
		t.Fatalf("expected total score 10, got %d", summary.TotalEngagementScore)
	}
}

func TestEngagementRate_NoResultsIsZero(t *testing.T) {
	if rate := EngagementRate(nil); rate != 0 {
		t.Fatalf("expected 0 for empty input, got %v", rate)
	}
}

func TestEngagementRate_AnyActionCounts(t *testing.T) {
	postID := uuid.New()
	results := []*types.SimulationResult{
		result(postID, true, false, false),
		result(postID, false, true, false),
		result(postID, false, false, true),
		result(postID, false, false, false),
	}
	if rate := EngagementRate(results); rate != 0.75 {
		t.Fatalf("expected 0.75, got %v", rate)
	}
}

func TestPostLabel(t *testing.T) {
	if got := PostLabel(&types.Post{VariationNumber: 0}); got != "the original post" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := PostLabel(&types.Post{VariationNumber: 3}); got != "variation 3" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := PostLabel(nil); got != "" {
		t.Fatalf("expected empty label for nil post, got %q", got)
	}
}

func TestRank_OrdersByRateThenScore(t *testing.T) {
	original := &types.Post{ID: uuid.New(), VariationNumber: 0}
	variation1 := &types.Post{ID: uuid.New(), VariationNumber: 1}
	variation2 := &types.Post{ID: uuid.New(), VariationNumber: 2}

	resultsByPost := map[uuid.UUID][]*types.SimulationResult{
		// rate 0.5, score 1
		original.ID: {
			result(original.ID, true, false, false),
			result(original.ID, false, false, false),
		},
		// rate 0.5, score 9: same rate as original, higher score, wins the tie
		variation1.ID: {
			result(variation1.ID, true, true, true),
			result(variation1.ID, false, false, false),
		},
		// rate 1.0: wins outright
		variation2.ID: {
			result(variation2.ID, true, false, false),
			result(variation2.ID, true, false, false),
		},
	}

	ranked := Rank([]*types.Post{original, variation1, variation2}, resultsByPost)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked posts, got %d", len(ranked))
	}
	if ranked[0].Post.ID != variation2.ID {
		t.Fatalf("expected variation 2 first")
	}
	if ranked[1].Post.ID != variation1.ID {
		t.Fatalf("expected variation 1 second (tie broken on score)")
	}
	if ranked[2].Post.ID != original.ID {
		t.Fatalf("expected original last")
	}
	if ranked[0].Label != "variation 2" || ranked[2].Label != "original" {
		t.Fatalf("unexpected labels: %q / %q", ranked[0].Label, ranked[2].Label)
	}
}

func TestRank_PostWithoutResults(t *testing.T) {
	post := &types.Post{ID: uuid.New(), VariationNumber: 1}
	ranked := Rank([]*types.Post{post}, map[uuid.UUID][]*types.SimulationResult{})
	if len(ranked) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(ranked))
	}
	if ranked[0].EngagementRate != 0 || ranked[0].Summary.SimulationCount != 0 {
		t.Fatalf("expected zeroed summary for post without results: %+v", ranked[0])
	}
}
