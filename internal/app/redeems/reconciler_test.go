package redeems_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kittynXR/mewbot/internal/app/redeems"

	"github.com/stretchr/testify/assert"
)

func reconcilerEnv(t *testing.T, rewards *fakeRewards, catalogue []redeems.Redeem) (*redeems.Reconciler, *redeems.Catalogue, *redeems.StatusView, *redeems.Store) {
	t.Helper()

	store := redeems.NewStore(filepath.Join(t.TempDir(), "redeems.json"))
	cat := redeems.NewCatalogue(catalogue)
	status := redeems.NewStatusView(nil)

	return redeems.NewReconciler(slog.Default(), rewards, store, cat, status), cat, status, store
}

func TestReconcileCreatesMissingRewards(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards()
	rec, cat, status, store := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "ask", Cost: 100, Prompt: "ask away", ActionKind: redeems.ActionAIResponse, ActiveWhenLive: true},
		{LocalTitle: "boop", Cost: 50, ActionKind: redeems.ActionUpdateText, ActiveWhenLive: true},
	})
	status.SetLive(true)

	assert.NoError(rec.Reconcile(context.Background()))
	assert.Equal(2, rewards.creates)

	// upstream IDs adopted and persisted
	ask, ok := cat.Get("ask")
	assert.True(ok)
	assert.NotEmpty(ask.UpstreamID)

	up, ok := rewards.byTitle("ask")
	assert.True(ok)
	assert.Equal(ask.UpstreamID, up.ID)
	assert.Equal(100, up.Cost)
	assert.True(up.IsEnabled)

	persisted, err := store.Load()
	assert.NoError(err)
	for _, r := range persisted {
		assert.NotEmpty(r.UpstreamID)
	}
}

func TestReconcileAdoptsExistingRewards(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards(redeems.UpstreamReward{
		ID: "up-7", Title: "ask", Cost: 100, Prompt: "ask away", IsEnabled: true,
	})
	rec, cat, status, _ := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "ask", Cost: 100, Prompt: "ask away", ActionKind: redeems.ActionAIResponse, ActiveWhenLive: true},
	})
	status.SetLive(true)

	assert.NoError(rec.Reconcile(context.Background()))
	assert.Equal(0, rewards.creates)
	assert.Equal(0, rewards.updates)

	ask, _ := cat.Get("ask")
	assert.Equal("up-7", ask.UpstreamID)
}

func TestReconcileUpdatesDriftedRewards(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards(redeems.UpstreamReward{
		ID: "up-7", Title: "ask", Cost: 999, Prompt: "old", IsEnabled: true,
	})
	rec, _, status, _ := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "ask", UpstreamID: "up-7", Cost: 100, Prompt: "ask away", ActionKind: redeems.ActionAIResponse, ActiveWhenLive: true},
	})
	status.SetLive(true)

	assert.NoError(rec.Reconcile(context.Background()))
	assert.Equal(1, rewards.updates)

	up, _ := rewards.byTitle("ask")
	assert.Equal(100, up.Cost)
	assert.Equal("ask away", up.Prompt)
}

func TestReconcileAppliesActivationPolicy(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards(redeems.UpstreamReward{
		ID: "up-7", Title: "vrchat only", Cost: 10, IsEnabled: true,
	})
	rec, _, status, _ := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "vrchat only", UpstreamID: "up-7", Cost: 10, ActionKind: redeems.ActionUpdateText,
			ActiveWhenLive: true, ActiveGames: []string{"VRChat"}},
	})

	// live, wrong game: disable
	status.SetLive(true)
	status.SetGame("Minecraft")
	assert.NoError(rec.Reconcile(context.Background()))
	up, _ := rewards.byTitle("vrchat only")
	assert.False(up.IsEnabled)

	// right game: enable again
	status.SetGame("vrchat")
	assert.NoError(rec.Reconcile(context.Background()))
	up, _ = rewards.byTitle("vrchat only")
	assert.True(up.IsEnabled)
}

func TestReconcileSkipsFailedRecords(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards()
	rewards.createErr = redeems.Transient(errors.New("twitch is down"))

	rec, cat, status, _ := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "ask", Cost: 100, ActionKind: redeems.ActionAIResponse, ActiveWhenLive: true},
	})
	status.SetLive(true)

	// the pass itself completes best-effort
	assert.NoError(rec.Reconcile(context.Background()))

	ask, _ := cat.Get("ask")
	assert.Empty(ask.UpstreamID)
}

func TestReconcileTriggerCoalesces(t *testing.T) {
	assert := assert.New(t)

	rewards := newFakeRewards()
	rec, _, _, _ := reconcilerEnv(t, rewards, []redeems.Redeem{
		{LocalTitle: "ask", Cost: 100, ActionKind: redeems.ActionAIResponse, ActiveWhenLive: true},
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		rec.Trigger(ctx)
	}
	rec.Wait()

	// one reward, created exactly once no matter how many triggers
	assert.Equal(1, rewards.creates)
}
