package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kittynXR/mewbot/internal/app/history"
	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/pubsub"
)

type Config struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// Engine is the operator surface the API exposes over HTTP.
type Engine interface {
	Redeems() []redeems.Redeem
	AddRedeem(r redeems.Redeem) error
	ToggleRedeem(title string, on bool) error
	SetActiveGames(title string, games []string) error
	SetOfflineActive(title string, on bool) error
	CompleteRedemption(ctx context.Context, rewardID, redemptionID string) error
	CancelRedemption(ctx context.Context, rewardID, redemptionID string) error
	ResetCoinGame(ctx context.Context) error
	CoinGameState() (price int, holder string)
	Status() redeems.StreamStatus
	TriggerReconcile()
}

// HistoryStore is the read side of the redemption log.
type HistoryStore interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type API struct {
	logger *slog.Logger

	cfg *Config

	engine  Engine
	history HistoryStore
	events  *pubsub.PubSub
}

func NewAPI(logger *slog.Logger, cfg *Config, engine Engine, historyStore HistoryStore, events *pubsub.PubSub) *API {
	return &API{
		logger: logger,

		cfg: cfg,

		engine:  engine,
		history: historyStore,
		events:  events,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (api *API) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", api.cfg.Port),
		Handler:           api.NewRouter(),
		ReadHeaderTimeout: api.cfg.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	api.logger.Info("api listening", "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}
