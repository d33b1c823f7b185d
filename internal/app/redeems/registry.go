package redeems

import (
	"context"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry maps local titles to handlers. Titles are the key, not upstream
// IDs: titles survive upstream deletes and recreates. Custom handlers are
// resolved lazily so runtime registration under Custom(name) keys works for
// redeems bound before the handler showed up.
type Registry struct {
	lock sync.RWMutex

	byTitle map[string]Handler
	custom  map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		byTitle: make(map[string]Handler),
		custom:  make(map[string]Handler),
	}
}

// Bind associates a handler with a local title.
func (reg *Registry) Bind(title string, h Handler) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	reg.byTitle[title] = h
}

func (reg *Registry) Get(title string) (Handler, bool) {
	reg.lock.RLock()
	defer reg.lock.RUnlock()

	h, ok := reg.byTitle[title]

	return h, ok
}

// RegisterCustom makes a handler available under a Custom(name) key.
func (reg *Registry) RegisterCustom(name string, h Handler) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	reg.custom[name] = h
}

func (reg *Registry) getCustom(name string) (Handler, bool) {
	reg.lock.RLock()
	defer reg.lock.RUnlock()

	h, ok := reg.custom[name]

	return h, ok
}

// customResolver defers the Custom(name) lookup to dispatch time.
func (reg *Registry) customResolver(name string) Handler {
	return HandlerFunc(func(ctx context.Context, r *Redemption) RedemptionResult {
		h, ok := reg.getCustom(name)
		if !ok {
			return RedemptionResult{
				Success: false,
				Message: "no custom handler registered for " + name,
			}
		}

		return h.Handle(ctx, r)
	})
}

// Titles lists bound titles in stable order.
func (reg *Registry) Titles() []string {
	reg.lock.RLock()
	defer reg.lock.RUnlock()

	titles := maps.Keys(reg.byTitle)
	slices.Sort(titles)

	return titles
}
