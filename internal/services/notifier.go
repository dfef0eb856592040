package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/sse"
	"github.com/yungbote/brandpulse-backend/internal/sse/bus"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
}

type HubEmitter struct{ Hub *sse.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type BusEmitter struct{ Bus bus.Bus }

func (e *BusEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}

// SimulationNotifier streams run lifecycle and progress events to the
// owning user's channel. All methods are fire-and-forget.
type SimulationNotifier interface {
	RunCreated(userID uuid.UUID, run *types.SimulationRun)
	RunProgress(userID uuid.UUID, run *types.SimulationRun, stage string, progress int, message string)
	RunMessage(userID uuid.UUID, run *types.SimulationRun, message string)
	RunFailed(userID uuid.UUID, run *types.SimulationRun, stage string, errorMessage string)
	RunDone(userID uuid.UUID, run *types.SimulationRun)
}

type simulationNotifier struct {
	emit SSEEmitter
}

func NewSimulationNotifier(emit SSEEmitter) SimulationNotifier {
	return &simulationNotifier{emit: emit}
}

func (n *simulationNotifier) RunCreated(userID uuid.UUID, run *types.SimulationRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSimulationRunCreated,
		Data:    map[string]any{"run": run},
	})
}

func (n *simulationNotifier) RunProgress(userID uuid.UUID, run *types.SimulationRun, stage string, progress int, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSimulationRunProgress,
		Data: map[string]any{
			"run_id":   safeRunID(run),
			"job_type": safeRunType(run),
			"stage":    stage,
			"progress": progress,
			"message":  message,
		},
	})
}

func (n *simulationNotifier) RunMessage(userID uuid.UUID, run *types.SimulationRun, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSimulationRunMessage,
		Data: map[string]any{
			"run_id":  safeRunID(run),
			"message": message,
		},
	})
}

func (n *simulationNotifier) RunFailed(userID uuid.UUID, run *types.SimulationRun, stage string, errorMessage string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSimulationRunFailed,
		Data: map[string]any{
			"run_id":   safeRunID(run),
			"job_type": safeRunType(run),
			"stage":    stage,
			"error":    errorMessage,
		},
	})
}

func (n *simulationNotifier) RunDone(userID uuid.UUID, run *types.SimulationRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSimulationRunDone,
		Data: map[string]any{
			"run_id":   safeRunID(run),
			"job_type": safeRunType(run),
			"run":      run,
		},
	})
}

func safeRunID(run *types.SimulationRun) uuid.UUID {
	if run == nil {
		return uuid.Nil
	}
	return run.ID
}

func safeRunType(run *types.SimulationRun) string {
	if run == nil {
		return ""
	}
	return run.JobType
}
