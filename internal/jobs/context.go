package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/services"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

// Context is the execution handle for one claimed run. Handlers never touch
// the simulation_run row directly; status, progress and termination all go
// through here so the row and the SSE stream stay consistent.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Run     *types.SimulationRun
	Repo    repos.SimulationRunRepo
	Notify  services.SimulationNotifier
	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, run *types.SimulationRun, repo repos.SimulationRunRepo, notify services.SimulationNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Run:    run,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Run == nil {
		return nil
	}
	if len(c.Run.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Run.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil; malformed payloads decode to an empty map and
// handlers validate their own required fields.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) uuid.UUID {
	raw, _ := c.Payload()[key].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Progress persists the stage/progress pair and mirrors it over SSE.
func (c *Context) Progress(stage string, progress int, message string) {
	if c == nil || c.Run == nil {
		return
	}
	c.Run.Stage = stage
	c.Run.Progress = progress
	_ = c.Repo.UpdateFields(c.Ctx, c.DB, c.Run.ID, map[string]interface{}{
		"stage":    stage,
		"progress": progress,
	})
	c.Notify.RunProgress(c.Run.UserID, c.Run, stage, progress, message)
}

// Message appends one human-readable line to the run's stored message log
// and streams it. This is the sink the engine reports batch progress into.
func (c *Context) Message(text string) {
	if c == nil || c.Run == nil || text == "" {
		return
	}
	_ = c.Repo.AppendProgressMessage(c.Ctx, c.DB, c.Run.ID, text)
	c.Notify.RunMessage(c.Run.UserID, c.Run, text)
}

func (c *Context) Heartbeat() {
	if c == nil || c.Run == nil {
		return
	}
	_ = c.Repo.Heartbeat(c.Ctx, c.DB, c.Run.ID)
}

func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Run == nil {
		return
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	now := time.Now()
	_ = c.Repo.UpdateFields(c.Ctx, c.DB, c.Run.ID, map[string]interface{}{
		"status":        types.RunStatusFailed,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
	})
	c.Run.Status = types.RunStatusFailed
	c.Notify.RunFailed(c.Run.UserID, c.Run, stage, msg)
}

// Done merges the handler result into the run's result document (preserving
// accumulated messages), marks the run succeeded and notifies.
func (c *Context) Done(result map[string]any) {
	if c == nil || c.Run == nil {
		return
	}
	merged := map[string]any{}
	if len(c.Run.Result) > 0 {
		_ = json.Unmarshal(c.Run.Result, &merged)
	}
	// Re-read in case Message() wrote lines after the run row was loaded.
	if fresh, err := c.Repo.GetByIDs(c.Ctx, c.DB, []uuid.UUID{c.Run.ID}); err == nil && len(fresh) > 0 && len(fresh[0].Result) > 0 {
		_ = json.Unmarshal(fresh[0].Result, &merged)
	}
	for k, v := range result {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		c.Fail("finalize", err)
		return
	}
	_ = c.Repo.UpdateFields(c.Ctx, c.DB, c.Run.ID, map[string]interface{}{
		"status":   types.RunStatusSucceeded,
		"stage":    "done",
		"progress": 100,
		"result":   datatypes.JSON(raw),
	})
	c.Run.Status = types.RunStatusSucceeded
	c.Run.Stage = "done"
	c.Run.Progress = 100
	c.Run.Result = datatypes.JSON(raw)
	c.Notify.RunDone(c.Run.UserID, c.Run)
}
