package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// AudienceJudge asks the model for one persona's qualitative reaction to one
// post. The narrative engagement context for the persona's behavior type is
// embedded in the prompt to ground the reasoning, but the returned verdict is
// advisory only; the engine's gates decide what actually happens.
type AudienceJudge struct {
	log         *logger.Logger
	ai          OpenAIClient
	calibration *simulation.Calibration
	callLogs    repos.AICallLogRepo
}

func NewAudienceJudge(log *logger.Logger, ai OpenAIClient, calibration *simulation.Calibration, callLogs repos.AICallLogRepo) *AudienceJudge {
	return &AudienceJudge{
		log:         log.With("service", "AudienceJudge"),
		ai:          ai,
		calibration: calibration,
		callLogs:    callLogs,
	}
}

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"stopped_scrolling": map[string]any{"type": "boolean"},
		"liked":             map[string]any{"type": "boolean"},
		"commented":         map[string]any{"type": "boolean"},
		"shared":            map[string]any{"type": "boolean"},
		"comment_text":      map[string]any{"type": "string"},
		"reasoning":         map[string]any{"type": "string"},
	},
	"required":             []string{"stopped_scrolling", "liked", "commented", "shared", "comment_text", "reasoning"},
	"additionalProperties": false,
}

func (j *AudienceJudge) Judge(ctx context.Context, persona *types.Persona, post *types.Post) (*simulation.Verdict, error) {
	system := j.systemPrompt(persona)
	user := userPrompt(post)

	out, err := j.ai.GenerateJSON(ctx, system, user, "audience_verdict", verdictSchema)
	j.recordCall(ctx, persona, post, user, out, err)
	if err != nil {
		return nil, fmt.Errorf("judge persona %s on post %s: %w", persona.ID, post.ID, err)
	}

	// comment_text is carried verbatim; it is the persona's own words and
	// ends up stored on the result untouched.
	return &simulation.Verdict{
		StoppedScrolling: boolField(out, "stopped_scrolling"),
		Liked:            boolField(out, "liked"),
		Commented:        boolField(out, "commented"),
		Shared:           boolField(out, "shared"),
		CommentText:      stringField(out, "comment_text"),
		Reasoning:        strings.TrimSpace(stringField(out, "reasoning")),
	}, nil
}

func (j *AudienceJudge) systemPrompt(persona *types.Persona) string {
	var b strings.Builder
	b.WriteString("You are roleplaying one specific member of a social media audience. Stay in character.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", persona.Name)
	if persona.Title != "" {
		fmt.Fprintf(&b, "Role: %s at %s\n", persona.Title, persona.Company)
	}
	if persona.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", persona.Industry)
	}
	if persona.AgeRange != "" {
		fmt.Fprintf(&b, "Age range: %s\n", persona.AgeRange)
	}
	if persona.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", persona.Bio)
	}
	if len(persona.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(persona.Interests, ", "))
	}
	if len(persona.PainPoints) > 0 {
		fmt.Fprintf(&b, "Pain points: %s\n", strings.Join(persona.PainPoints, ", "))
	}
	if persona.ContentPreferences != "" {
		fmt.Fprintf(&b, "Content preferences: %s\n", persona.ContentPreferences)
	}
	b.WriteString("\n")
	b.WriteString(j.calibration.Profile(persona.BehaviorType).Context)
	b.WriteString("\n\nBe honest about indifference. Most posts in a feed get scrolled past; only react when this persona genuinely would.")
	return b.String()
}

func userPrompt(post *types.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are scrolling your %s feed and see this post:\n\n%s\n\n", post.Platform, post.Content)
	b.WriteString("Would you stop scrolling for it? Would you like it, comment on it, share it? ")
	b.WriteString("If you would comment, write the comment you would leave in comment_text, otherwise leave it empty. ")
	b.WriteString("Explain your reaction briefly in reasoning.")
	return b.String()
}

// recordCall writes the audit row; failures here are logged, never surfaced.
func (j *AudienceJudge) recordCall(ctx context.Context, persona *types.Persona, post *types.Post, prompt string, out map[string]any, callErr error) {
	if j.callLogs == nil {
		return
	}
	row := &types.AICallLog{
		UserID:    &persona.UserID,
		ContextID: &post.ID,
		CallType:  "audience_verdict",
		Model:     j.ai.Model(),
		Prompt:    prompt,
		Success:   callErr == nil,
	}
	if callErr != nil {
		row.Error = callErr.Error()
	} else if raw, err := json.Marshal(out); err == nil {
		row.Response = string(raw)
	}
	if _, err := j.callLogs.Create(ctx, nil, []*types.AICallLog{row}); err != nil {
		j.log.Warn("Failed to write AI call log", "error", err)
	}
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
