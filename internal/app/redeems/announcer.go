package redeems

import (
	"log/slog"
	"sync"
)

// Announcer is the chat-out sink. Lines are queued and delivered by a single
// drain goroutine so handlers never block on the chat transport; Close drains
// everything already enqueued.
type Announcer struct {
	logger *slog.Logger

	channel string
	sender  ChatSender

	ch        chan string
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewAnnouncer(logger *slog.Logger, sender ChatSender, channel string) *Announcer {
	a := &Announcer{
		logger: logger,

		channel: channel,
		sender:  sender,

		ch: make(chan string, 64),
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		for text := range a.ch {
			a.sender.Say(a.channel, text)
		}
	}()

	return a
}

// Say enqueues one chat line. Lines are dropped when the queue is full or the
// announcer is already closed.
func (a *Announcer) Say(text string) {
	defer func() {
		if recover() != nil {
			a.logger.Warn("chat line dropped after close", "text", text)
		}
	}()

	select {
	case a.ch <- text:
	default:
		a.logger.Warn("chat queue full, dropping line", "text", text)
	}
}

// Announce publishes a handler message prefixed with the redeemer's name.
func (a *Announcer) Announce(userName, message string) {
	a.Say("@" + userName + ": " + message)
}

// Close stops accepting lines and waits for the queue to drain.
func (a *Announcer) Close() {
	a.closeOnce.Do(func() {
		close(a.ch)
	})

	a.wg.Wait()
}
