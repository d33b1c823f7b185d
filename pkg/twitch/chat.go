package twitch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	irc "github.com/gempir/go-twitch-irc/v4"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/tools"
)

// Chat is the authenticated IRC connection used for announcements and the
// !continue command. Say is fire-and-forget; the underlying client queues
// while reconnecting.
type Chat struct {
	logger *slog.Logger

	client  *irc.Client
	channel string
}

var _ redeems.ChatSender = &Chat{}

func NewChat(logger *slog.Logger, botLogin, accessToken, channel string) *Chat {
	token := accessToken
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := irc.NewClient(botLogin, token)
	client.Join(channel)

	client.SendPings = true
	client.IdlePingInterval = 10 * time.Second

	return &Chat{
		logger: logger,

		client:  client,
		channel: channel,
	}
}

// Run connects and reconnects until ctx is done.
func (c *Chat) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.client.Disconnect()
	}()

	for {
		err := c.client.Connect()
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Error("chat disconnected, reconnecting", "err", err)

		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Chat) Say(channel, text string) {
	c.client.Say(channel, text)
}

// HandleCommands wires the !continue command: it pops the stashed tail of a
// split AI response for the viewer who asked.
func (c *Chat) HandleCommands(ai redeems.AIClient) {
	c.client.OnPrivateMessage(func(message irc.PrivateMessage) {
		if !strings.EqualFold(strings.TrimSpace(message.Message), "!continue") {
			return
		}

		stashed, ok := ai.TakeRemainder(message.User.ID)
		if !ok {
			return
		}

		head, tail := tools.SplitAtSentence(stashed, 500)
		if tail != "" {
			ai.StoreRemainder(message.User.ID, tail)
		}

		c.client.Say(c.channel, "@"+message.User.DisplayName+": "+head)
	})
}
