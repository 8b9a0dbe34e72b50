package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront-labs/aegis/logging"
	"github.com/storefront-labs/aegis/model"
)

// Handler receives invalidation events delivered to this context.
type Handler func(model.InvalidationEvent)

// Broadcaster fans invalidation events out to local subscribers and
// relays them through an external transport so caches in other execution
// contexts converge. One broadcaster per process, passed to each consumer
// by its constructor.
type Broadcaster struct {
	origin    string
	transport Transport

	mu     sync.RWMutex
	subs   map[int]Handler
	nextID int
}

// New creates a broadcaster over the given transport.
func New(transport Transport) *Broadcaster {
	return &Broadcaster{
		origin:    uuid.NewString(),
		transport: transport,
		subs:      make(map[int]Handler),
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
// A subscriber that is torn down should call it; one that does not is
// simply a map entry holding a dead closure and never crashes dispatch.
func (b *Broadcaster) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to local subscribers synchronously, then
// hands it to the transport fire-and-forget. By the time Publish returns,
// every local cache has applied the invalidation; remote contexts
// converge within the transport's propagation window.
func (b *Broadcaster) Publish(ctx context.Context, event model.InvalidationEvent) {
	if event.Origin == "" {
		event.Origin = b.origin
	}
	b.dispatch(event)

	payload, err := event.MarshalWire()
	if err != nil {
		logging.Error("failed to serialize invalidation event",
			zap.Error(err),
			zap.String("scope", event.Scope.String()))
		return
	}

	go func() {
		if err := b.transport.Publish(context.WithoutCancel(ctx), payload); err != nil {
			logging.Error("failed to publish invalidation event",
				zap.Error(err),
				zap.String("scope", event.Scope.String()),
				zap.String("targetID", event.TargetID))
		}
	}()
}

// Start begins receiving events from the transport and dispatching them
// locally. Events that originated here are dropped: the local caches
// already applied them at publish time.
func (b *Broadcaster) Start(ctx context.Context) error {
	return b.transport.Subscribe(ctx, func(payload []byte) {
		event, err := model.UnmarshalWire(payload)
		if err != nil {
			logging.Warn("dropping malformed invalidation message", zap.Error(err))
			return
		}
		if event.Origin == b.origin {
			return
		}
		b.dispatch(event)
	})
}

func (b *Broadcaster) dispatch(event model.InvalidationEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(handler, event)
	}
}

func (b *Broadcaster) invoke(handler Handler, event model.InvalidationEvent) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("invalidation subscriber panicked",
				zap.Any("panic", r),
				zap.String("scope", event.Scope.String()))
		}
	}()
	handler(event)
}
