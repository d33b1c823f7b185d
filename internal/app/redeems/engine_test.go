package redeems_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/pubsub"

	"github.com/stretchr/testify/assert"
)

func engineEnv(t *testing.T, scripts map[string]string) (*redeems.Engine, *fakeRewards, *fakeChat, *pubsub.PubSub) {
	t.Helper()

	dir := t.TempDir()

	scriptsDir := ""
	if len(scripts) > 0 {
		scriptsDir = filepath.Join(dir, "scripts")
		assert.NoError(t, os.MkdirAll(scriptsDir, 0o755))
		for name, src := range scripts {
			assert.NoError(t, os.WriteFile(filepath.Join(scriptsDir, name), []byte(src), 0o600))
		}
	}

	rewards := newFakeRewards()
	chat := &fakeChat{}
	events := pubsub.New()

	eng, err := redeems.New(slog.Default(), &redeems.Config{
		CataloguePath: filepath.Join(dir, "redeems.json"),
		Channel:       "testchannel",
		ScriptsDir:    scriptsDir,
	}, rewards, chat, &fakeAI{response: "meow."}, &fakeOSC{connected: true}, events)
	assert.NoError(t, err)

	t.Cleanup(func() {
		_ = eng.Close(context.Background())
	})

	return eng, rewards, chat, events
}

func waitForReconcile(t *testing.T, eng *redeems.Engine) {
	t.Helper()

	assert.Eventually(t, func() bool {
		for _, r := range eng.Redeems() {
			if r.UpstreamID == "" {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "reconcile did not adopt upstream IDs")
}

func TestEngineProvisionsDefaults(t *testing.T) {
	assert := assert.New(t)

	eng, rewards, _, _ := engineEnv(t, nil)
	waitForReconcile(t, eng)

	_, ok := rewards.byTitle(redeems.CoinGameTitle)
	assert.True(ok)

	price, holder := eng.CoinGameState()
	assert.Equal(20, price)
	assert.Empty(holder)
}

func TestEngineDispatchesRedemption(t *testing.T) {
	assert := assert.New(t)

	eng, rewards, _, events := engineEnv(t, nil)
	waitForReconcile(t, eng)

	var outcomes []redeems.Outcome
	events.Subscribe(redeems.TopicOutcomes, func(message any) {
		if o, ok := message.(redeems.Outcome); ok {
			outcomes = append(outcomes, o)
		}
	})

	assert.NoError(eng.AddRedeem(redeems.Redeem{
		LocalTitle:     "echo",
		Cost:           10,
		ActionKind:     redeems.ActionUpdateText,
		ActiveWhenLive: true,
	}))

	result := eng.OnRedemption(context.Background(), &redeems.Redemption{
		ID:          "rd-1",
		RewardTitle: "echo",
		UserID:      "u1",
		UserName:    "alice",
	})
	assert.True(result.Success)

	verdicts := rewards.verdictsFor("rd-1")
	assert.Len(verdicts, 1)
	assert.Equal(redeems.StatusFulfilled, verdicts[0].Status)

	assert.Len(outcomes, 1)
	assert.Equal("echo", outcomes[0].RedeemName)
}

func TestEngineLuaAction(t *testing.T) {
	assert := assert.New(t)

	eng, _, _, _ := engineEnv(t, map[string]string{
		"greet.lua": `reply("hello " .. user)`,
	})
	waitForReconcile(t, eng)

	assert.NoError(eng.AddRedeem(redeems.Redeem{
		LocalTitle:     "greet me",
		Cost:           5,
		ActionKind:     redeems.ActionCustom,
		CustomName:     "greet",
		ActiveWhenLive: true,
	}))

	result := eng.OnRedemption(context.Background(), &redeems.Redemption{
		ID:          "rd-lua",
		RewardTitle: "greet me",
		UserID:      "u1",
		UserName:    "alice",
	})
	assert.True(result.Success)
	assert.Equal("hello alice", result.Message)
}

func TestEngineCoinGameTitleOverridesActionKind(t *testing.T) {
	assert := assert.New(t)

	// the reserved title routes to the protocol whatever kind the catalogue
	// entry carries
	path := filepath.Join(t.TempDir(), "redeems.json")
	seed, err := json.Marshal([]redeems.Redeem{{
		LocalTitle:     redeems.CoinGameTitle,
		Cost:           20,
		Prompt:         "grab the coin",
		ActionKind:     redeems.ActionAIResponse,
		ActiveWhenLive: true,
	}})
	assert.NoError(err)
	assert.NoError(os.WriteFile(path, seed, 0o600))

	rewards := newFakeRewards()
	eng, err := redeems.New(slog.Default(), &redeems.Config{
		CataloguePath: path,
		Channel:       "testchannel",
	}, rewards, &fakeChat{}, &fakeAI{response: "meow."}, &fakeOSC{}, pubsub.New())
	assert.NoError(err)
	t.Cleanup(func() {
		_ = eng.Close(context.Background())
	})

	waitForReconcile(t, eng)

	result := eng.OnRedemption(context.Background(), &redeems.Redemption{
		ID:          "rd-1",
		RewardTitle: redeems.CoinGameTitle,
		UserID:      "u1",
		UserName:    "alice",
	})
	assert.True(result.Success)

	price, holder := eng.CoinGameState()
	assert.Greater(price, 20)
	assert.Equal("alice", holder)

	// the protocol settles its own rounds, no auto verdict
	assert.Empty(rewards.verdictsFor("rd-1"))
}

func TestEngineOperatorSurface(t *testing.T) {
	assert := assert.New(t)

	eng, rewards, _, _ := engineEnv(t, nil)
	waitForReconcile(t, eng)

	err := eng.AddRedeem(redeems.Redeem{
		LocalTitle: redeems.CoinGameTitle,
		Cost:       1,
		ActionKind: redeems.ActionCustom,
		CustomName: redeems.CoinGameTitle,
	})
	assert.Equal(redeems.KindConflict, redeems.KindOf(err))

	assert.Equal(redeems.KindNotFound, redeems.KindOf(eng.ToggleRedeem("missing", true)))

	assert.NoError(eng.ToggleRedeem("mao mao", false))
	r, ok := findRedeem(eng, "mao mao")
	assert.True(ok)
	assert.False(r.ActiveWhenLive)

	assert.NoError(eng.SetActiveGames("mao mao", []string{"Just Chatting"}))
	assert.NoError(eng.SetOfflineActive("mao mao", true))
	r, _ = findRedeem(eng, "mao mao")
	assert.Equal([]string{"Just Chatting"}, r.ActiveGames)
	assert.True(r.ActiveOffline)

	assert.NoError(eng.CompleteRedemption(context.Background(), "up-1", "rd-1"))
	assert.NoError(eng.CancelRedemption(context.Background(), "up-1", "rd-2"))

	verdicts := rewards.allVerdicts()
	assert.Equal(redeems.StatusFulfilled, verdicts[len(verdicts)-2].Status)
	assert.Equal(redeems.StatusCanceled, verdicts[len(verdicts)-1].Status)
}

func TestEngineStreamTransitions(t *testing.T) {
	assert := assert.New(t)

	eng, _, _, _ := engineEnv(t, nil)
	waitForReconcile(t, eng)

	eng.OnStreamOnline("VRChat")
	assert.Eventually(func() bool {
		return eng.Status().IsLive && eng.Status().CurrentGame == "VRChat"
	}, time.Second, 10*time.Millisecond)

	eng.OnChannelUpdate("Minecraft")
	assert.Equal("Minecraft", eng.Status().CurrentGame)

	eng.OnStreamOffline()
	assert.False(eng.Status().IsLive)
}

func TestEngineCloseRejectsNewWork(t *testing.T) {
	assert := assert.New(t)

	eng, _, _, _ := engineEnv(t, nil)
	waitForReconcile(t, eng)

	assert.NoError(eng.Close(context.Background()))
	assert.NoError(eng.Close(context.Background())) // idempotent

	err := eng.AddRedeem(redeems.Redeem{LocalTitle: "late", Cost: 1, ActionKind: redeems.ActionUpdateText})
	assert.Equal(redeems.KindShuttingDown, redeems.KindOf(err))

	result := eng.OnRedemption(context.Background(), &redeems.Redemption{
		ID:          "rd-late",
		RewardTitle: "mao mao",
		UserName:    "alice",
	})
	assert.False(result.Success)
}

func findRedeem(eng *redeems.Engine, title string) (redeems.Redeem, bool) {
	for _, r := range eng.Redeems() {
		if r.LocalTitle == title {
			return r, true
		}
	}

	return redeems.Redeem{}, false
}
