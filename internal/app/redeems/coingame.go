package redeems

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/kittynXR/mewbot/pkg/tools"
)

// CoinGame is a hot-potato game over a single reward: each redemption takes
// the coin from the previous holder, refunds them, and raises the price by a
// random factor in [1.5, 2.5). The holder keeps the coin until someone pays
// the new price or the game resets.
type CoinGame struct {
	logger *slog.Logger

	rewards   RewardService
	ai        AIClient
	announcer *Announcer
	catalogue *Catalogue

	lock      sync.Mutex
	price     int
	seedPrice int
	seedText  string
	holder    *Redemption
}

func NewCoinGame(logger *slog.Logger, rewards RewardService, ai AIClient, announcer *Announcer, catalogue *Catalogue) *CoinGame {
	game := &CoinGame{
		logger: logger,

		rewards:   rewards,
		ai:        ai,
		announcer: announcer,
		catalogue: catalogue,
	}

	if redeem, ok := catalogue.Get(CoinGameTitle); ok {
		game.seedPrice = redeem.Cost
		game.seedText = redeem.Prompt
		game.price = redeem.Cost
	}

	coinGamePrice.Set(float64(game.price))

	return game
}

// Handle runs one round. Rounds are strictly sequential; the mutex also
// covers the upstream update so two racing redemptions cannot both advance
// from the same price.
func (g *CoinGame) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	g.lock.Lock()
	defer g.lock.Unlock()

	factor := 1.5 + rand.Float64()
	newPrice := int(math.Round(float64(g.price) * factor))

	prompt := g.roundPrompt(ctx, r.UserName, newPrice)

	upstreamID, ok := g.upstreamID()
	if !ok {
		return RedemptionResult{Success: false, Message: "coin game reward is not provisioned"}
	}

	if _, err := g.rewards.UpdateReward(ctx, upstreamID, RewardFields{
		Title:     CoinGameTitle,
		Cost:      newPrice,
		Prompt:    prompt,
		IsEnabled: true,
	}); err != nil {
		return RedemptionResult{
			Success: false,
			Message: "failed to raise the coin game price: " + err.Error(),
		}
	}

	// Price is raised upstream; from here the round always advances, even
	// if refunding the previous holder fails.
	if prev := g.holder; prev != nil {
		if err := g.rewards.SetRedemptionStatus(ctx, prev.RewardID, prev.ID, StatusCanceled); err != nil {
			g.logger.Error("failed to refund previous coin holder", "user", prev.UserName, "err", err)
		} else {
			g.announcer.Announce(prev.UserName, "lost the coin and got their points back")
		}
	}

	g.price = newPrice
	g.holder = r
	coinGamePrice.Set(float64(newPrice))

	// mirror the live price into the catalogue so a reconcile pass running
	// mid-round pushes the current round state, not the seed
	g.catalogue.Mutate(CoinGameTitle, func(rd *Redeem) {
		rd.Cost = newPrice
		rd.Prompt = prompt
	})

	g.announcer.Announce(r.UserName, fmt.Sprintf("holds the coin! next grab costs %d points", newPrice))

	return RedemptionResult{Success: true}
}

// Reset refunds the standing holder and puts the reward back at its seed
// price. Used on stream transitions and from the operator API.
func (g *CoinGame) Reset(ctx context.Context) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if prev := g.holder; prev != nil {
		if err := g.rewards.SetRedemptionStatus(ctx, prev.RewardID, prev.ID, StatusCanceled); err != nil {
			g.logger.Error("failed to refund coin holder on reset", "user", prev.UserName, "err", err)
		} else {
			g.announcer.Announce(prev.UserName, "coin game over, points returned")
		}
		g.holder = nil
	}

	g.price = g.seedPrice
	coinGamePrice.Set(float64(g.seedPrice))

	g.catalogue.Mutate(CoinGameTitle, func(rd *Redeem) {
		rd.Cost = g.seedPrice
		rd.Prompt = g.seedText
	})

	upstreamID, ok := g.upstreamID()
	if !ok {
		return nil
	}

	if _, err := g.rewards.UpdateReward(ctx, upstreamID, RewardFields{
		Title:     CoinGameTitle,
		Cost:      g.seedPrice,
		Prompt:    g.seedText,
		IsEnabled: true,
	}); err != nil {
		return fmt.Errorf("failed to reset coin game reward: %w", err)
	}

	return nil
}

// State reports the current price and holder for the operator API.
func (g *CoinGame) State() (price int, holder string) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.holder != nil {
		holder = g.holder.UserName
	}

	return g.price, holder
}

func (g *CoinGame) upstreamID() (string, bool) {
	redeem, ok := g.catalogue.Get(CoinGameTitle)
	if !ok || redeem.UpstreamID == "" {
		return "", false
	}

	return redeem.UpstreamID, true
}

func (g *CoinGame) roundPrompt(ctx context.Context, winner string, newPrice int) string {
	fallback := fmt.Sprintf("%s holds the coin. steal it for %d points", winner, newPrice)

	if g.ai == nil {
		return fallback
	}

	text, err := g.ai.Generate(ctx, CoinGameTitle,
		fmt.Sprintf("Write one short playful sentence taunting viewers to steal the coin from %s for %d channel points. Plain text, no quotes.", winner, newPrice),
		false)
	if err != nil || text == "" {
		if err != nil {
			g.logger.Warn("falling back to static coin game prompt", "err", err)
		}
		return fallback
	}

	// Twitch caps reward prompts at 200 characters.
	head, _ := tools.SplitAtSentence(text, 200)

	return head
}
