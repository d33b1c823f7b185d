package twitch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/nicklaw5/helix/v2"

	"github.com/kittynXR/mewbot/internal/app/redeems"

	"github.com/stretchr/testify/assert"
)

// stubHTTPClient records the outgoing helix request and replies with a canned
// body.
type stubHTTPClient struct {
	status int
	body   string

	req     *http.Request
	reqBody []byte
}

func (s *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	s.req = req
	if req.Body != nil {
		s.reqBody, _ = io.ReadAll(req.Body)
	}

	return &http.Response{
		StatusCode: s.status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(classify("op", helix.ResponseCommon{StatusCode: 200}))
	assert.NoError(classify("op", helix.ResponseCommon{StatusCode: 204}))

	err := classify("op", helix.ResponseCommon{StatusCode: 429, ErrorMessage: "slow down"})
	assert.Equal(redeems.KindUpstreamTransient, redeems.KindOf(err))

	err = classify("op", helix.ResponseCommon{StatusCode: 503})
	assert.Equal(redeems.KindUpstreamTransient, redeems.KindOf(err))

	err = classify("op", helix.ResponseCommon{StatusCode: 403, ErrorMessage: "forbidden"})
	assert.Equal(redeems.KindUpstreamPermanent, redeems.KindOf(err))

	err = classify("op", helix.ResponseCommon{StatusCode: 400})
	assert.Equal(redeems.KindUpstreamPermanent, redeems.KindOf(err))
}

func TestToUpstream(t *testing.T) {
	assert := assert.New(t)

	reward := helix.ChannelCustomReward{
		ID:                  "up-1",
		Title:               "mao mao",
		Cost:                555,
		Prompt:              "meow",
		IsEnabled:           true,
		IsUserInputRequired: true,
	}
	reward.GlobalCooldownSetting.IsEnabled = true
	reward.GlobalCooldownSetting.GlobalCooldownSeconds = 120

	up := toUpstream(reward)
	assert.Equal(redeems.UpstreamReward{
		ID:                  "up-1",
		Title:               "mao mao",
		Cost:                555,
		Prompt:              "meow",
		IsEnabled:           true,
		CooldownSeconds:     120,
		IsUserInputRequired: true,
	}, up)

	// disabled cooldown reads as zero regardless of the stored seconds
	reward.GlobalCooldownSetting.IsEnabled = false
	assert.Zero(toUpstream(reward).CooldownSeconds)
}

func TestUpdateReward(t *testing.T) {
	assert := assert.New(t)

	stub := &stubHTTPClient{
		status: 200,
		body:   `{"data":[{"id":"up-1","title":"coin game","cost":42,"prompt":"steal it","is_enabled":true}]}`,
	}

	client, err := helix.NewClient(&helix.Options{ClientID: "cid", HTTPClient: stub})
	assert.NoError(err)

	r := NewRewards(slog.Default(), client, "b-1")

	up, err := r.UpdateReward(context.Background(), "up-1", redeems.RewardFields{
		Title:     "coin game",
		Cost:      42,
		Prompt:    "steal it",
		IsEnabled: true,
	})
	assert.NoError(err)
	assert.Equal(42, up.Cost)
	assert.Equal("up-1", up.ID)

	q := stub.req.URL.Query()
	assert.Equal("up-1", q.Get("id"))
	assert.Equal("b-1", q.Get("broadcaster_id"))

	var sent map[string]any
	assert.NoError(json.Unmarshal(stub.reqBody, &sent))
	assert.Equal("coin game", sent["title"])
	assert.EqualValues(42, sent["cost"])
	assert.Equal("steal it", sent["prompt"])
	assert.Equal(true, sent["is_enabled"])
	assert.Equal(false, sent["is_global_cooldown_enabled"])
}

func TestRewardParams(t *testing.T) {
	assert := assert.New(t)

	r := NewRewards(nil, nil, "b-1")

	params := r.rewardParams(redeems.RewardFields{Title: "x", Cost: 10, CooldownSeconds: 30})
	assert.Equal("b-1", params.BroadcasterID)
	assert.True(params.IsGlobalCooldownEnabled)
	assert.Equal(30, params.GlobalCooldownSeconds)

	params = r.rewardParams(redeems.RewardFields{Title: "x", Cost: 10})
	assert.False(params.IsGlobalCooldownEnabled)
}
