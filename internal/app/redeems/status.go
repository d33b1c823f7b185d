package redeems

import "sync"

// StatusView is the single-writer stream-status record. EventSub collaborators
// call the setters; the activation policy and dispatcher read snapshots.
// Every transition fires onChange on its own goroutine so the caller never
// blocks on the reconcile it triggers.
type StatusView struct {
	lock sync.RWMutex

	live bool
	game string

	onChange func()
}

func NewStatusView(onChange func()) *StatusView {
	if onChange == nil {
		onChange = func() {}
	}

	return &StatusView{onChange: onChange}
}

func (s *StatusView) SetLive(live bool) {
	s.lock.Lock()
	changed := s.live != live
	s.live = live
	s.lock.Unlock()

	if changed {
		go s.onChange()
	}
}

func (s *StatusView) SetGame(game string) {
	s.lock.Lock()
	changed := s.game != game
	s.game = game
	s.lock.Unlock()

	if changed {
		go s.onChange()
	}
}

func (s *StatusView) Snapshot() StreamStatus {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return StreamStatus{IsLive: s.live, CurrentGame: s.game}
}
