package messenger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Bus is an in-process Messenger: page agents register a Handler under
// their instance id and Send dispatches to it directly.
type Bus struct {
	mu       sync.RWMutex
	handlers map[InstanceID]*registration
	active   InstanceID
}

type registration struct {
	h    Handler
	live bool
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[InstanceID]*registration)}
}

// Register installs h for id, replacing any previous handler, and marks id
// active. The returned func unregisters exactly this registration.
func (b *Bus) Register(id InstanceID, h Handler) (unregister func()) {
	reg := &registration{h: h, live: true}

	b.mu.Lock()
	b.handlers[id] = reg
	b.active = id
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			reg.live = false
			if b.handlers[id] == reg {
				delete(b.handlers, id)
				if b.active == id {
					b.active = ""
				}
			}
		})
	}
}

// SetActive marks id as the instance the popup should talk to.
func (b *Bus) SetActive(id InstanceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		return fmt.Errorf("set active %q: %w", id, ErrNoListener)
	}
	b.active = id
	return nil
}

// Active returns the active instance, if any.
func (b *Bus) Active() (InstanceID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active, b.active != ""
}

// Resolve is Active under the name the popup's resolver expects.
func (b *Bus) Resolve(context.Context) (InstanceID, bool) {
	return b.Active()
}

// Instances lists registered instance ids in sorted order.
func (b *Bus) Instances() []InstanceID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]InstanceID, 0, len(b.handlers))
	for id := range b.handlers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Send dispatches req to the handler registered for target. The bus lock is
// not held while the handler runs.
func (b *Bus) Send(ctx context.Context, target InstanceID, req Request) (Response, error) {
	if !req.Kind.Valid() {
		return Response{}, &DeliveryError{Target: target, Kind: req.Kind, Err: fmt.Errorf("unknown kind %q", req.Kind)}
	}
	if err := ctx.Err(); err != nil {
		return Response{}, &DeliveryError{Target: target, Kind: req.Kind, Err: err}
	}

	b.mu.RLock()
	reg, ok := b.handlers[target]
	b.mu.RUnlock()
	if !ok {
		return Response{}, &DeliveryError{Target: target, Kind: req.Kind, Err: ErrNoListener}
	}

	resp, err := reg.h.Handle(ctx, req)
	if err != nil {
		return Response{}, &DeliveryError{Target: target, Kind: req.Kind, Err: err}
	}

	b.mu.RLock()
	live := reg.live
	b.mu.RUnlock()
	if !live {
		// the agent went away mid-call; its answer is not trustworthy
		return Response{}, &DeliveryError{Target: target, Kind: req.Kind, Err: ErrDisconnected}
	}
	return resp, nil
}
