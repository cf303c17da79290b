package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names mirror the verification stages.
const (
	StageIdentity  = "identity"
	StageHealth    = "health"
	StageBiometric = "biometric"
)

// StageTransition is published after every persisted verification-stage write.
// Trust scoring subscribes to it; nothing in the pipeline blocks on delivery.
type StageTransition struct {
	SubjectID  uuid.UUID
	Stage      string
	FromStatus string
	ToStatus   string
	OccurredAt time.Time
}

// Handler consumes a stage transition. Handlers run synchronously in publish
// order; they must not block on long I/O.
type Handler func(ctx context.Context, evt StageTransition)

// Bus is a minimal in-process publish/subscribe fan-out.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all stage transitions.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ctx context.Context, evt StageTransition) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
}
