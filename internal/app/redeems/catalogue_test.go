package redeems_test

import (
	"testing"

	"github.com/kittynXR/mewbot/internal/app/redeems"

	"github.com/stretchr/testify/assert"
)

func TestCatalogue(t *testing.T) {
	assert := assert.New(t)

	cat := redeems.NewCatalogue([]redeems.Redeem{
		{LocalTitle: "first", Cost: 10, ActionKind: redeems.ActionRefund, UpstreamID: "up-1"},
	})

	r, ok := cat.Get("first")
	assert.True(ok)
	assert.Equal(10, r.Cost)

	r, ok = cat.GetByUpstreamID("up-1")
	assert.True(ok)
	assert.Equal("first", r.LocalTitle)

	_, ok = cat.GetByUpstreamID("")
	assert.False(ok)

	assert.NoError(cat.Add(redeems.Redeem{LocalTitle: "second", Cost: 20, ActionKind: redeems.ActionUpdateText}))

	err := cat.Add(redeems.Redeem{LocalTitle: "first", Cost: 1, ActionKind: redeems.ActionRefund})
	assert.Equal(redeems.KindConflict, redeems.KindOf(err))

	err = cat.Add(redeems.Redeem{LocalTitle: "bad", Cost: 1, ActionKind: "nope"})
	assert.Error(err)

	assert.True(cat.Mutate("second", func(r *redeems.Redeem) { r.Cost = 25 }))
	r, _ = cat.Get("second")
	assert.Equal(25, r.Cost)

	assert.False(cat.Mutate("missing", func(*redeems.Redeem) {}))

	// snapshot is a copy, mutations to it do not leak back
	snap := cat.Snapshot()
	assert.Len(snap, 2)
	snap[0].Cost = 999
	r, _ = cat.Get("first")
	assert.Equal(10, r.Cost)
}
