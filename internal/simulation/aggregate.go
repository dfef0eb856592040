package simulation

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/types"
)

// PostEngagementSummary totals one post's results. It is always derived from
// the stored result rows, never persisted as its own source of truth.
type PostEngagementSummary struct {
	PostID               uuid.UUID `json:"post_id"`
	TotalLikes           int       `json:"total_likes"`
	TotalShares          int       `json:"total_shares"`
	TotalComments        int       `json:"total_comments"`
	TotalEngagementScore int       `json:"total_engagement_score"`
	SimulationCount      int       `json:"simulation_count"`
}

type RankedPost struct {
	Post           *types.Post           `json:"post"`
	Summary        PostEngagementSummary `json:"summary"`
	EngagementRate float64               `json:"engagement_rate"`
	Label          string                `json:"label"`
}

func Summarize(postID uuid.UUID, results []*types.SimulationResult) PostEngagementSummary {
	summary := PostEngagementSummary{PostID: postID}
	for _, result := range results {
		if result == nil || result.PostID != postID {
			continue
		}
		summary.SimulationCount++
		summary.TotalEngagementScore += result.EngagementScore
		if result.Liked {
			summary.TotalLikes++
		}
		if result.Shared {
			summary.TotalShares++
		}
		if result.Commented {
			summary.TotalComments++
		}
	}
	return summary
}

// EngagementRate is the fraction of a post's results showing any action.
// Zero results is degenerate but defined: the rate is 0.
func EngagementRate(results []*types.SimulationResult) float64 {
	count := len(results)
	if count == 0 {
		return 0
	}
	scrolledPast := 0
	for _, result := range results {
		if result == nil || (!result.Liked && !result.Shared && !result.Commented) {
			scrolledPast++
		}
	}
	return float64(count-scrolledPast) / float64(count)
}

// PostLabel distinguishes a carried-over post from a generated variation in
// any user-facing report.
func PostLabel(post *types.Post) string {
	if post == nil {
		return ""
	}
	if post.VariationNumber == 0 {
		return "the original post"
	}
	return fmt.Sprintf("variation %d", post.VariationNumber)
}

func rankLabel(post *types.Post) string {
	if post == nil {
		return ""
	}
	if post.VariationNumber == 0 {
		return "original"
	}
	return fmt.Sprintf("variation %d", post.VariationNumber)
}

// Rank orders posts by engagement rate, breaking ties on total engagement
// score. Posts with equal rate and equal score keep their input order (the
// sort is stable); that residual order is deterministic but not meaningful.
// The first entry is the winner.
func Rank(posts []*types.Post, resultsByPost map[uuid.UUID][]*types.SimulationResult) []RankedPost {
	ranked := make([]RankedPost, 0, len(posts))
	for _, post := range posts {
		results := resultsByPost[post.ID]
		ranked = append(ranked, RankedPost{
			Post:           post,
			Summary:        Summarize(post.ID, results),
			EngagementRate: EngagementRate(results),
			Label:          rankLabel(post),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].EngagementRate != ranked[j].EngagementRate {
			return ranked[i].EngagementRate > ranked[j].EngagementRate
		}
		return ranked[i].Summary.TotalEngagementScore > ranked[j].Summary.TotalEngagementScore
	})
	return ranked
}
