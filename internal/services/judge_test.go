package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakeAIClient struct {
	lastSystem string
	lastUser   string
	lastSchema string
	out        map[string]any
	err        error
}

func (c *fakeAIClient) Model() string { return "test-model" }

func (c *fakeAIClient) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	c.lastSystem = system
	c.lastUser = user
	c.lastSchema = schemaName
	return c.out, c.err
}

type fakeCallLogRepo struct {
	rows []*types.AICallLog
}

func (r *fakeCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	r.rows = append(r.rows, logs...)
	return logs, nil
}

func judgeFixtures() (*types.Persona, *types.Post) {
	persona := &types.Persona{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Name:         "Priya Shah",
		Title:        "VP Marketing",
		Company:      "Acme",
		Industry:     "SaaS",
		Bio:          "Builds demand gen teams.",
		Interests:    datatypes.NewJSONSlice([]string{"positioning", "brand"}),
		PainPoints:   datatypes.NewJSONSlice([]string{"attribution"}),
		BehaviorType: types.BehaviorLurker,
		Platform:     "linkedin",
	}
	post := &types.Post{
		ID:       uuid.New(),
		UserID:   persona.UserID,
		Platform: "linkedin",
		Content:  "Hot take: most attribution models measure nothing.",
	}
	return persona, post
}

func newTestJudge(ai OpenAIClient, callLogs *fakeCallLogRepo) *AudienceJudge {
	log := testLogger()
	return NewAudienceJudge(log, ai, simulation.DefaultCalibration(log), callLogs)
}

func TestAudienceJudge_CoercesVerdictFields(t *testing.T) {
	ai := &fakeAIClient{out: map[string]any{
		"stopped_scrolling": true,
		"liked":             true,
		"commented":         true,
		"shared":            false,
		"comment_text":      "  So true.  ",
		"reasoning":         " This is my daily fight. ",
	}}
	judge := newTestJudge(ai, &fakeCallLogRepo{})
	persona, post := judgeFixtures()

	verdict, err := judge.Judge(context.Background(), persona, post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.StoppedScrolling || !verdict.Liked || !verdict.Commented || verdict.Shared {
		t.Fatalf("unexpected verdict flags: %+v", verdict)
	}
	if verdict.CommentText != "  So true.  " {
		t.Fatalf("comment text must be carried verbatim, got %q", verdict.CommentText)
	}
	if verdict.Reasoning != "This is my daily fight." {
		t.Fatalf("reasoning not trimmed: %q", verdict.Reasoning)
	}
	if ai.lastSchema != "audience_verdict" {
		t.Fatalf("unexpected schema name: %q", ai.lastSchema)
	}
}

func TestAudienceJudge_PromptsEmbedPersonaAndPost(t *testing.T) {
	ai := &fakeAIClient{out: map[string]any{
		"stopped_scrolling": false,
		"liked":             false,
		"commented":         false,
		"shared":            false,
		"comment_text":      "",
		"reasoning":         "not for me",
	}}
	judge := newTestJudge(ai, &fakeCallLogRepo{})
	persona, post := judgeFixtures()

	if _, err := judge.Judge(context.Background(), persona, post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Priya Shah", "VP Marketing", "positioning", "attribution"} {
		if !strings.Contains(ai.lastSystem, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, ai.lastSystem)
		}
	}
	// The behavior type's narrative context grounds the persona's habits.
	if !strings.Contains(ai.lastSystem, "lurker") {
		t.Fatalf("system prompt missing behavior narrative:\n%s", ai.lastSystem)
	}
	if !strings.Contains(ai.lastUser, post.Content) {
		t.Fatalf("user prompt missing post content:\n%s", ai.lastUser)
	}
	if !strings.Contains(ai.lastUser, "linkedin") {
		t.Fatalf("user prompt missing platform:\n%s", ai.lastUser)
	}
}

func TestAudienceJudge_RecordsCallLogOnSuccess(t *testing.T) {
	callLogs := &fakeCallLogRepo{}
	ai := &fakeAIClient{out: map[string]any{
		"stopped_scrolling": true,
		"liked":             false,
		"commented":         false,
		"shared":            false,
		"comment_text":      "",
		"reasoning":         "read it",
	}}
	judge := newTestJudge(ai, callLogs)
	persona, post := judgeFixtures()

	if _, err := judge.Judge(context.Background(), persona, post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(callLogs.rows) != 1 {
		t.Fatalf("expected 1 call log row, got %d", len(callLogs.rows))
	}
	row := callLogs.rows[0]
	if !row.Success || row.Error != "" {
		t.Fatalf("expected success row, got %+v", row)
	}
	if row.CallType != "audience_verdict" || row.Model != "test-model" {
		t.Fatalf("unexpected call metadata: %+v", row)
	}
	if !strings.Contains(row.Response, "read it") {
		t.Fatalf("expected response captured, got %q", row.Response)
	}
}

func TestAudienceJudge_RecordsCallLogOnFailure(t *testing.T) {
	callLogs := &fakeCallLogRepo{}
	ai := &fakeAIClient{err: fmt.Errorf("rate limited")}
	judge := newTestJudge(ai, callLogs)
	persona, post := judgeFixtures()

	if _, err := judge.Judge(context.Background(), persona, post); err == nil {
		t.Fatalf("expected error to propagate")
	}
	if len(callLogs.rows) != 1 {
		t.Fatalf("expected 1 call log row, got %d", len(callLogs.rows))
	}
	row := callLogs.rows[0]
	if row.Success {
		t.Fatalf("expected failure row")
	}
	if !strings.Contains(row.Error, "rate limited") {
		t.Fatalf("expected error captured, got %q", row.Error)
	}
}
