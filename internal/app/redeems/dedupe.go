package redeems

import "sync"

// processedSet is the bounded set of redemption IDs already accepted by the
// dispatcher. EventSub redelivers notifications, so the first check is a set
// membership test; insertion order eviction keeps memory bounded.
type processedSet struct {
	lock sync.Mutex

	capacity int
	ids      map[string]struct{}
	order    []string
	head     int
}

func newProcessedSet(capacity int) *processedSet {
	if capacity <= 0 {
		capacity = 10_000
	}

	return &processedSet{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Add inserts id and reports whether it was new. Does not suspend.
func (p *processedSet) Add(id string) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.ids[id]; ok {
		return false
	}

	if len(p.ids) >= p.capacity {
		oldest := p.order[p.head]
		delete(p.ids, oldest)
		p.order[p.head] = ""
		p.head++

		// compact once the dead prefix dominates
		if p.head > p.capacity {
			p.order = append(p.order[:0], p.order[p.head:]...)
			p.head = 0
		}
	}

	p.ids[id] = struct{}{}
	p.order = append(p.order, id)

	return true
}

// Remove forgets id so a redelivery can be accepted, e.g. when the
// dispatcher rejected the redemption without processing it.
func (p *processedSet) Remove(id string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.ids[id]; !ok {
		return
	}
	delete(p.ids, id)

	for i := len(p.order) - 1; i >= p.head; i-- {
		if p.order[i] == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *processedSet) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.ids)
}
