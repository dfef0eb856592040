package bus

import (
	"context"

	"github.com/yungbote/brandpulse-backend/internal/sse"
)

// Bus fans SSE messages out across instances. The single-instance deploy
// skips it and broadcasts straight into the local hub.
type Bus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
	Close() error
}
