package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kittynXR/mewbot/cfg"
	"github.com/kittynXR/mewbot/internal/app/api"
	"github.com/kittynXR/mewbot/internal/app/history"
	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/llm"
	"github.com/kittynXR/mewbot/pkg/osc"
	"github.com/kittynXR/mewbot/pkg/pubsub"
	"github.com/kittynXR/mewbot/pkg/twitch"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	config, err := cfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	twitchClient := twitch.New(httpClient, &config.Twitch)

	helixClient, err := twitchClient.NewHelixClient(func(accessToken, refreshToken string) {
		logger.Info("twitch user token refreshed")
	})
	if err != nil {
		log.Fatal("failed to create helix client: ", err)
	}

	rewards := twitch.NewRewards(logger.WithGroup("rewards"), helixClient, config.Twitch.BroadcasterID)
	chat := twitch.NewChat(logger.WithGroup("chat"), config.Twitch.BotLogin, config.Twitch.AccessToken, config.Twitch.Channel)
	aiClient := llm.New(httpClient, &config.LLM)
	oscClient := osc.New(&config.OSC)
	events := pubsub.New()

	if config.Engine.Channel == "" {
		config.Engine.Channel = config.Twitch.Channel
	}

	engine, err := redeems.New(logger.WithGroup("engine"), &config.Engine, rewards, chat, aiClient, oscClient, events)
	if err != nil {
		log.Fatal("failed to create redemption engine: ", err)
	}

	historyLog, err := history.New(logger.WithGroup("history"), &config.History)
	if err != nil {
		log.Fatal("failed to open history db: ", err)
	}
	defer historyLog.Close()

	unsub := historyLog.Subscribe(events)
	defer unsub()

	chat.HandleCommands(aiClient)

	apiServer := api.NewAPI(logger.WithGroup("api"), &config.Api, engine, historyLog, events)
	eventSource := twitch.NewEventSource(logger.WithGroup("eventsub"), helixClient, config.Twitch.BroadcasterID, engine)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		if err := apiServer.Run(ctx); err != nil {
			logger.Error("api server finished", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		if err := chat.Run(ctx); err != nil {
			logger.Error("chat loop finished", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		if err := eventSource.Run(ctx); err != nil {
			logger.Error("eventsub loop finished", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-stop:
		logger.Info("interrupt triggered")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := engine.Close(shutdownCtx); err != nil {
		logger.Error("engine shutdown incomplete", "err", err)
	}

	wg.Wait()
}
