package pubsub

import "sync"

// PubSub is a minimal in-process topic bus. Handlers run synchronously on the
// publisher's goroutine; a handler that can block should hand off to its own
// channel. A handler unsubscribing concurrently with a publish may still see
// that one in-flight message.
type PubSub struct {
	lock sync.RWMutex

	seq  int64
	subs map[string]map[int64]func(message any)
}

func New() *PubSub {
	return &PubSub{
		subs: make(map[string]map[int64]func(message any)),
	}
}

func (p *PubSub) Publish(topic string, message any) {
	p.lock.RLock()
	handlers := make([]func(message any), 0, len(p.subs[topic]))
	for _, fn := range p.subs[topic] {
		handlers = append(handlers, fn)
	}
	p.lock.RUnlock()

	for _, fn := range handlers {
		fn(message)
	}
}

func (p *PubSub) Subscribe(topic string, handler func(message any)) (unsub func()) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.seq++
	id := p.seq

	if p.subs[topic] == nil {
		p.subs[topic] = make(map[int64]func(message any))
	}
	p.subs[topic][id] = handler

	return func() {
		p.lock.Lock()
		defer p.lock.Unlock()

		delete(p.subs[topic], id)
	}
}
