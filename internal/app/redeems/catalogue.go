package redeems

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Catalogue is the in-memory authoritative redeem list. The reconciler is the
// only writer during a pass; the dispatcher takes shared reads. Lock order
// across the engine is catalogue -> registry -> coin-game state.
type Catalogue struct {
	lock    sync.RWMutex
	redeems []Redeem
}

func NewCatalogue(redeems []Redeem) *Catalogue {
	return &Catalogue{
		redeems: slices.Clone(redeems),
	}
}

// Snapshot returns a copy of every entry in stable order.
func (c *Catalogue) Snapshot() []Redeem {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return slices.Clone(c.redeems)
}

func (c *Catalogue) Get(title string) (Redeem, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for i := range c.redeems {
		if c.redeems[i].LocalTitle == title {
			return c.redeems[i], true
		}
	}

	return Redeem{}, false
}

func (c *Catalogue) GetByUpstreamID(id string) (Redeem, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if id == "" {
		return Redeem{}, false
	}

	for i := range c.redeems {
		if c.redeems[i].UpstreamID == id {
			return c.redeems[i], true
		}
	}

	return Redeem{}, false
}

// Add appends a new redeem, enforcing title uniqueness.
func (c *Catalogue) Add(r Redeem) error {
	if err := r.validate(); err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.redeems {
		if c.redeems[i].LocalTitle == r.LocalTitle {
			return Conflictf("redeem %q already exists", r.LocalTitle)
		}
	}

	c.redeems = append(c.redeems, r)

	return nil
}

// Mutate applies fn to the redeem with the given title under the write lock.
func (c *Catalogue) Mutate(title string, fn func(*Redeem)) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := range c.redeems {
		if c.redeems[i].LocalTitle == title {
			fn(&c.redeems[i])
			return true
		}
	}

	return false
}
