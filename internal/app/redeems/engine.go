package redeems

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kittynXR/mewbot/pkg/pubsub"
)

// TopicOutcomes carries Outcome records on the in-process bus; the history
// log and the dashboard stream subscribe to it.
const TopicOutcomes = "redemptions"

const shutdownGrace = 10 * time.Second

type Config struct {
	CataloguePath string `yaml:"catalogue_path"`
	Channel       string `yaml:"channel"`
	ScriptsDir    string `yaml:"scripts_dir"`
}

// Engine wires the catalogue, registry, dispatcher, reconciler and coin game
// together and exposes the operator and event-source entrypoints.
type Engine struct {
	logger *slog.Logger
	cfg    *Config

	rewards RewardService
	ai      AIClient
	osc     OSCSender

	store      *Store
	catalogue  *Catalogue
	status     *StatusView
	registry   *Registry
	announcer  *Announcer
	dispatcher *Dispatcher
	reconciler *Reconciler
	coinGame   *CoinGame
	events     *pubsub.PubSub

	ctx    context.Context
	cancel context.CancelFunc

	shuttingDown atomic.Bool
}

func New(logger *slog.Logger, cfg *Config, rewards RewardService, chat ChatSender, ai AIClient, osc OSCSender, events *pubsub.PubSub) (*Engine, error) {
	store := NewStore(cfg.CataloguePath)

	records, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	eng := &Engine{
		logger: logger,
		cfg:    cfg,

		rewards: rewards,
		ai:      ai,
		osc:     osc,

		store:     store,
		catalogue: NewCatalogue(records),
		registry:  NewRegistry(),
		announcer: NewAnnouncer(logger.WithGroup("announcer"), chat, cfg.Channel),
		events:    events,

		ctx:    ctx,
		cancel: cancel,
	}

	eng.status = NewStatusView(func() {
		eng.reconciler.Trigger(eng.ctx)
	})

	eng.coinGame = NewCoinGame(logger.WithGroup("coin_game"), rewards, ai, eng.announcer, eng.catalogue)
	eng.registry.RegisterCustom(CoinGameTitle, eng.coinGame)

	if n, err := LoadLuaScripts(logger.WithGroup("lua"), cfg.ScriptsDir, eng.registry, ai, osc); err != nil {
		cancel()
		eng.announcer.Close()
		return nil, err
	} else if n > 0 {
		logger.Info("lua actions loaded", "count", n)
	}

	for _, redeem := range eng.catalogue.Snapshot() {
		eng.bind(&redeem)
	}

	eng.dispatcher = NewDispatcher(logger.WithGroup("dispatcher"), eng.catalogue, eng.registry, rewards, eng.announcer, func(o Outcome) {
		if eng.events != nil {
			eng.events.Publish(TopicOutcomes, o)
		}
	})

	eng.reconciler = NewReconciler(logger.WithGroup("reconciler"), rewards, store, eng.catalogue, eng.status)
	eng.reconciler.Trigger(eng.ctx)

	return eng, nil
}

func (e *Engine) bind(redeem *Redeem) {
	// the coin-game title is reserved: it always routes to the protocol,
	// whatever action kind the catalogue entry carries
	if redeem.LocalTitle == CoinGameTitle {
		e.registry.Bind(redeem.LocalTitle, e.coinGame)
		return
	}

	var h Handler

	switch redeem.ActionKind {
	case ActionAIResponse, ActionAIResponseWithHistory, ActionAIResponseNoHistory:
		h = newAIHandler(e.ai, redeem)
	case ActionOSCMessage:
		h = newOSCHandler(e.logger, e.osc, redeem)
	case ActionRefund:
		h = &refundHandler{rewards: e.rewards}
	case ActionUpdateText:
		h = updateTextHandler()
	case ActionCustom:
		h = e.registry.customResolver(redeem.CustomName)
	default:
		kind := redeem.ActionKind
		h = HandlerFunc(func(context.Context, *Redemption) RedemptionResult {
			return RedemptionResult{Success: false, Message: fmt.Sprintf("unsupported action kind %q", kind)}
		})
	}

	e.registry.Bind(redeem.LocalTitle, h)
}

// OnRedemption dispatches one redemption and waits for its result. Call it
// from the event-source read loop: dedupe and queue numbering happen before
// it returns a channel, so per-reward arrival order is preserved even though
// handlers run concurrently across rewards.
func (e *Engine) OnRedemption(ctx context.Context, r *Redemption) RedemptionResult {
	select {
	case result := <-e.EnqueueRedemption(ctx, r):
		return result
	case <-ctx.Done():
		return RedemptionResult{Success: false, Message: ctx.Err().Error()}
	}
}

// EnqueueRedemption is the non-blocking variant; the channel delivers exactly
// one result.
func (e *Engine) EnqueueRedemption(ctx context.Context, r *Redemption) <-chan RedemptionResult {
	return e.dispatcher.Enqueue(ctx, r)
}

func (e *Engine) OnStreamOnline(game string) {
	e.status.SetGame(game)
	e.status.SetLive(true)

	go func() {
		if err := e.coinGame.Reset(e.ctx); err != nil {
			e.logger.Error("failed to reset coin game on stream start", "err", err)
		}
	}()
}

func (e *Engine) OnStreamOffline() {
	e.status.SetLive(false)

	go func() {
		if err := e.coinGame.Reset(e.ctx); err != nil {
			e.logger.Error("failed to reset coin game on stream end", "err", err)
		}
	}()
}

func (e *Engine) OnChannelUpdate(game string) {
	e.status.SetGame(game)
}

// AddRedeem validates, persists and provisions a new redeem.
func (e *Engine) AddRedeem(r Redeem) error {
	if e.shuttingDown.Load() {
		return ErrShuttingDown
	}

	if err := e.catalogue.Add(r); err != nil {
		return err
	}

	e.bind(&r)

	if err := e.store.Save(e.catalogue.Snapshot()); err != nil {
		return err
	}

	e.reconciler.Trigger(e.ctx)

	return nil
}

// ToggleRedeem flips whether the redeem is offered while the stream is live.
func (e *Engine) ToggleRedeem(title string, on bool) error {
	return e.mutate(title, func(r *Redeem) {
		r.ActiveWhenLive = on
	})
}

// SetActiveGames replaces the game whitelist. An empty list means all games.
func (e *Engine) SetActiveGames(title string, games []string) error {
	return e.mutate(title, func(r *Redeem) {
		r.ActiveGames = games
	})
}

// SetOfflineActive flips whether the redeem is offered while offline.
func (e *Engine) SetOfflineActive(title string, on bool) error {
	return e.mutate(title, func(r *Redeem) {
		r.ActiveOffline = on
	})
}

func (e *Engine) mutate(title string, fn func(*Redeem)) error {
	if e.shuttingDown.Load() {
		return ErrShuttingDown
	}

	if !e.catalogue.Mutate(title, fn) {
		return NotFoundf("no redeem titled %q", title)
	}

	if err := e.store.Save(e.catalogue.Snapshot()); err != nil {
		return err
	}

	e.reconciler.Trigger(e.ctx)

	return nil
}

// CompleteRedemption posts Fulfilled for a manually completed redemption.
// The upstream API addresses redemptions by reward and redemption ID, so
// both are required here.
func (e *Engine) CompleteRedemption(ctx context.Context, rewardID, redemptionID string) error {
	return e.rewards.SetRedemptionStatus(ctx, rewardID, redemptionID, StatusFulfilled)
}

// CancelRedemption posts Canceled, refunding the viewer's points.
func (e *Engine) CancelRedemption(ctx context.Context, rewardID, redemptionID string) error {
	return e.rewards.SetRedemptionStatus(ctx, rewardID, redemptionID, StatusCanceled)
}

func (e *Engine) ResetCoinGame(ctx context.Context) error {
	if e.shuttingDown.Load() {
		return ErrShuttingDown
	}

	return e.coinGame.Reset(ctx)
}

func (e *Engine) CoinGameState() (price int, holder string) {
	return e.coinGame.State()
}

func (e *Engine) Redeems() []Redeem {
	return e.catalogue.Snapshot()
}

func (e *Engine) Status() StreamStatus {
	return e.status.Snapshot()
}

func (e *Engine) TriggerReconcile() {
	e.reconciler.Trigger(e.ctx)
}

// Close drains the engine: no new redemptions or reconciles are accepted,
// in-flight handlers get a bounded grace period, the catalogue is flushed
// and enqueued chat lines are delivered.
func (e *Engine) Close(ctx context.Context) error {
	if !e.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	e.cancel()

	graceCtx, graceCancel := context.WithTimeout(ctx, shutdownGrace)
	defer graceCancel()

	err := e.dispatcher.Close(graceCtx)

	e.reconciler.Wait()

	if saveErr := e.store.Save(e.catalogue.Snapshot()); saveErr != nil && err == nil {
		err = saveErr
	}

	e.announcer.Close()

	return err
}
