package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nicklaw5/helix/v2"

	"github.com/kittynXR/mewbot/internal/app/redeems"
)

// Rewards is the helix-backed reward service. Failures are classified so the
// dispatcher knows what is worth retrying: 429 and 5xx are transient, other
// 4xx are permanent.
type Rewards struct {
	logger *slog.Logger

	client        *helix.Client
	broadcasterID string
}

var _ redeems.RewardService = &Rewards{}

func NewRewards(logger *slog.Logger, client *helix.Client, broadcasterID string) *Rewards {
	return &Rewards{
		logger: logger,

		client:        client,
		broadcasterID: broadcasterID,
	}
}

func (r *Rewards) ListRewards(ctx context.Context) ([]redeems.UpstreamReward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := r.client.GetCustomRewards(&helix.GetCustomRewardsParams{
		BroadcasterID:         r.broadcasterID,
		OnlyManageableRewards: true,
	})
	if err != nil {
		return nil, redeems.Transient(fmt.Errorf("failed to list custom rewards: %w", err))
	}
	if err := classify("list custom rewards", resp.ResponseCommon); err != nil {
		return nil, err
	}

	out := make([]redeems.UpstreamReward, 0, len(resp.Data.ChannelCustomRewards))
	for _, reward := range resp.Data.ChannelCustomRewards {
		out = append(out, toUpstream(reward))
	}

	return out, nil
}

func (r *Rewards) CreateReward(ctx context.Context, fields redeems.RewardFields) (*redeems.UpstreamReward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := r.client.CreateCustomReward(r.rewardParams(fields))
	if err != nil {
		return nil, redeems.Transient(fmt.Errorf("failed to create custom reward: %w", err))
	}
	if err := classify("create custom reward", resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.ChannelCustomRewards) == 0 {
		return nil, redeems.Permanent(fmt.Errorf("no reward returned for %q", fields.Title))
	}

	created := toUpstream(resp.Data.ChannelCustomRewards[0])

	return &created, nil
}

func (r *Rewards) UpdateReward(ctx context.Context, id string, fields redeems.RewardFields) (*redeems.UpstreamReward, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := r.client.UpdateCustomReward(&helix.UpdateChannelCustomRewardsParams{
		ID:            id,
		BroadcasterID: r.broadcasterID,

		Title:                   fields.Title,
		Cost:                    fields.Cost,
		Prompt:                  fields.Prompt,
		IsEnabled:               fields.IsEnabled,
		IsUserInputRequired:     fields.IsUserInputRequired,
		IsGlobalCooldownEnabled: fields.CooldownSeconds > 0,
		GlobalCooldownSeconds:   fields.CooldownSeconds,
	})
	if err != nil {
		return nil, redeems.Transient(fmt.Errorf("failed to update custom reward: %w", err))
	}
	if err := classify("update custom reward", resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.ChannelCustomRewards) == 0 {
		return nil, redeems.NotFoundf("reward %s not found upstream", id)
	}

	updated := toUpstream(resp.Data.ChannelCustomRewards[0])

	return &updated, nil
}

func (r *Rewards) SetRedemptionStatus(ctx context.Context, rewardID, redemptionID string, status redeems.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := r.client.UpdateChannelCustomRewardsRedemptionStatus(&helix.UpdateChannelCustomRewardsRedemptionStatusParams{
		ID:            redemptionID,
		BroadcasterID: r.broadcasterID,
		RewardID:      rewardID,
		Status:        string(status),
	})
	if err != nil {
		return redeems.Transient(fmt.Errorf("failed to update redemption status: %w", err))
	}

	return classify("update redemption status", resp.ResponseCommon)
}

func (r *Rewards) rewardParams(fields redeems.RewardFields) *helix.ChannelCustomRewardsParams {
	return &helix.ChannelCustomRewardsParams{
		BroadcasterID: r.broadcasterID,

		Title:                   fields.Title,
		Cost:                    fields.Cost,
		Prompt:                  fields.Prompt,
		IsEnabled:               fields.IsEnabled,
		IsUserInputRequired:     fields.IsUserInputRequired,
		IsGlobalCooldownEnabled: fields.CooldownSeconds > 0,
		GlobalCooldownSeconds:   fields.CooldownSeconds,
	}
}

func toUpstream(reward helix.ChannelCustomReward) redeems.UpstreamReward {
	cooldown := 0
	if reward.GlobalCooldownSetting.IsEnabled {
		cooldown = reward.GlobalCooldownSetting.GlobalCooldownSeconds
	}

	return redeems.UpstreamReward{
		ID:                  reward.ID,
		Title:               reward.Title,
		Cost:                reward.Cost,
		Prompt:              reward.Prompt,
		IsEnabled:           reward.IsEnabled,
		CooldownSeconds:     cooldown,
		IsUserInputRequired: reward.IsUserInputRequired,
	}
}

func classify(op string, rc helix.ResponseCommon) error {
	switch {
	case rc.StatusCode < http.StatusMultipleChoices:
		return nil
	case rc.StatusCode == http.StatusTooManyRequests || rc.StatusCode >= http.StatusInternalServerError:
		return redeems.Transient(fmt.Errorf("%s: twitch api returned %d: %s", op, rc.StatusCode, rc.ErrorMessage))
	default:
		return redeems.Permanent(fmt.Errorf("%s: twitch api returned %d: %s", op, rc.StatusCode, rc.ErrorMessage))
	}
}
