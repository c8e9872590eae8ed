// Package popup holds the popup's state controller: the load/refresh cycle
// that reconciles the page's live items with the store, and the show action.
package popup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/idilsaglam/issuestash/internal/config"
	"github.com/idilsaglam/issuestash/internal/logging"
	"github.com/idilsaglam/issuestash/internal/messenger"
	"github.com/idilsaglam/issuestash/internal/model"
	"github.com/idilsaglam/issuestash/internal/store"
)

// Resolver finds the page instance the popup was opened on.
// ok=false is a valid answer: there is simply nothing to talk to.
type Resolver interface {
	Resolve(ctx context.Context) (id messenger.InstanceID, ok bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (messenger.InstanceID, bool)

func (f ResolverFunc) Resolve(ctx context.Context) (messenger.InstanceID, bool) { return f(ctx) }

// ShowPolicy decides what happens to the hidden list when ItemShow fails.
type ShowPolicy int

const (
	// Optimistic removes the item whatever the delivery outcome.
	Optimistic ShowPolicy = iota
	// Confirmed removes the item only once the page acknowledged it.
	Confirmed
)

// ParseShowPolicy maps a config value to a ShowPolicy.
func ParseShowPolicy(s string) (ShowPolicy, error) {
	switch s {
	case "", config.PolicyOptimistic:
		return Optimistic, nil
	case config.PolicyConfirmed:
		return Confirmed, nil
	}
	return Optimistic, fmt.Errorf("unknown show policy %q", s)
}

// ErrNoInstance is returned by ShowItem when no page instance was resolved.
var ErrNoInstance = errors.New("no active page instance")

// Controller owns the popup State. It is safe for concurrent use; the lock
// is never held across a messenger or store call.
type Controller struct {
	messenger messenger.Messenger
	store     store.Reader
	resolver  Resolver
	policy    ShowPolicy
	log       *zap.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Controller.
type Option func(*Controller)

func WithPolicy(p ShowPolicy) Option { return func(c *Controller) { c.policy = p } }

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.log = logging.OrNop(l) } }

// New returns a Controller in the Pending state.
func New(m messenger.Messenger, st store.Reader, r Resolver, opts ...Option) *Controller {
	c := &Controller{
		messenger: m,
		store:     st,
		resolver:  r,
		log:       zap.NewNop(),
		state:     State{LoadState: model.Pending, Hidden: []model.Item{}},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	s.Hidden = append([]model.Item(nil), c.state.Hidden...)
	return s
}

func (c *Controller) apply(f func(State) State) {
	c.mu.Lock()
	c.state = f(c.state)
	c.mu.Unlock()
}

// Refresh puts the controller back into Pending so the next Load runs a
// fresh cycle. Safe while a cycle is in flight: that cycle's results are
// discarded once the next one begins.
func (c *Controller) Refresh() {
	c.apply(State.refresh)
}

// Load runs one load cycle if the state is Pending and reports whether it
// did. Every path ends in Loaded; delivery and store failures are logged
// and leave the previous data in place.
func (c *Controller) Load(ctx context.Context) (State, bool) {
	c.mu.Lock()
	next, gen, ok := c.state.begin()
	if !ok {
		s := c.snapshot()
		c.mu.Unlock()
		return s, false
	}
	c.state = next
	c.mu.Unlock()

	log := c.log.With(zap.Uint64("cycle", gen))
	c.run(ctx, gen, log)
	return c.State(), true
}

func (c *Controller) run(ctx context.Context, gen uint64, log *zap.Logger) {
	id, ok := c.resolver.Resolve(ctx)
	if !ok {
		log.Debug("no active page instance")
		c.apply(func(s State) State { return s.noInstance(gen) })
		return
	}
	c.apply(func(s State) State { return s.withInstance(gen, id) })
	log = log.With(zap.String("instance", string(id)))

	defer c.apply(func(s State) State { return s.finish(gen) })

	items, err := messenger.QueryItems(ctx, c.messenger, id)
	if err != nil {
		log.Warn("query page items", zap.Error(err))
		return
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	records, err := c.store.GetMany(ctx, ids)
	if err != nil {
		log.Warn("read visibility records", zap.Error(err))
		return
	}
	hidden := HiddenAmong(ids, records)
	c.apply(func(s State) State { return s.withHidden(gen, hidden, len(items)) })
	log.Debug("hidden items loaded", zap.Int("rendered", len(items)), zap.Int("hidden", len(hidden)))

	pc, err := messenger.QueryPageContext(ctx, c.messenger, id)
	if err != nil {
		log.Warn("query page context", zap.Error(err))
		return
	}
	c.apply(func(s State) State { return s.withPage(gen, pc) })
}

// ShowItem asks the page to reveal item and drops it from the hidden list.
// Under Optimistic the item is dropped even when delivery fails; the error
// is still returned. Under Confirmed a failure leaves the list untouched.
func (c *Controller) ShowItem(ctx context.Context, item model.Item) error {
	c.mu.Lock()
	target := c.state.Instance
	c.mu.Unlock()

	var err error
	if target == "" {
		err = &messenger.DeliveryError{Kind: messenger.ItemShow, Err: ErrNoInstance}
	} else {
		err = messenger.ShowItem(ctx, c.messenger, target, item)
	}
	if err != nil {
		c.log.Warn("show item", zap.String("item", item.ID), zap.Error(err))
		if c.policy == Confirmed {
			return err
		}
	}
	c.apply(func(s State) State { return s.without(item.ID) })
	return err
}
