package history_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/kittynXR/mewbot/internal/app/history"
	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/pubsub"

	"github.com/stretchr/testify/assert"
)

func newLog(t *testing.T) *history.Log {
	t.Helper()

	log, err := history.New(slog.Default(), &history.Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func outcome(id, redeem, user string, success bool) redeems.Outcome {
	return redeems.Outcome{
		Redemption: redeems.Redemption{
			ID:       id,
			UserID:   user + "-id",
			UserName: user,
		},
		Result:     redeems.RedemptionResult{Success: success, Message: "msg"},
		RedeemName: redeem,
		ActionKind: redeems.ActionAIResponse,
		Verdict:    redeems.StatusFulfilled,
		FinishedAt: time.Now(),
	}
}

func TestRecordAndRecent(t *testing.T) {
	assert := assert.New(t)

	log := newLog(t)

	assert.NoError(log.Record(outcome("rd-1", "mao mao", "alice", true)))
	assert.NoError(log.Record(outcome("rd-2", "coin game", "bob", false)))

	entries, err := log.Recent(context.Background(), 10)
	assert.NoError(err)
	assert.Len(entries, 2)

	// newest first
	assert.Equal("rd-2", entries[0].RedemptionID)
	assert.Equal("bob", entries[0].UserName)
	assert.False(entries[0].Success)

	assert.Equal("rd-1", entries[1].RedemptionID)
	assert.True(entries[1].Success)
	assert.Equal(redeems.ActionAIResponse, entries[1].ActionKind)
	assert.Equal(string(redeems.StatusFulfilled), entries[1].Verdict)
}

func TestRecentLimit(t *testing.T) {
	assert := assert.New(t)

	log := newLog(t)

	for i := 0; i < 5; i++ {
		assert.NoError(log.Record(outcome("rd", "mao mao", "alice", true)))
	}

	entries, err := log.Recent(context.Background(), 3)
	assert.NoError(err)
	assert.Len(entries, 3)
}

func TestSubscribeRecordsOutcomes(t *testing.T) {
	assert := assert.New(t)

	log := newLog(t)
	events := pubsub.New()

	unsub := log.Subscribe(events)
	defer unsub()

	events.Publish(redeems.TopicOutcomes, outcome("rd-1", "mao mao", "alice", true))
	events.Publish(redeems.TopicOutcomes, "not an outcome") // ignored

	entries, err := log.Recent(context.Background(), 10)
	assert.NoError(err)
	assert.Len(entries, 1)
	assert.Equal("rd-1", entries[0].RedemptionID)
}
