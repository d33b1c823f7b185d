package redeems

import "context"

// RewardService is the upstream Twitch Helix custom-rewards surface the
// engine consumes. Implementations classify failures as transient or
// permanent via Transient/Permanent wrapping.
type RewardService interface {
	ListRewards(ctx context.Context) ([]UpstreamReward, error)
	CreateReward(ctx context.Context, fields RewardFields) (*UpstreamReward, error)
	UpdateReward(ctx context.Context, id string, fields RewardFields) (*UpstreamReward, error)
	SetRedemptionStatus(ctx context.Context, rewardID, redemptionID string, status Status) error
}

// ChatSender delivers one chat line; fire-and-forget, back-pressure is the
// transport's concern.
type ChatSender interface {
	Say(channel, text string)
}

// OSCSender writes typed values to avatar parameter endpoints.
type OSCSender interface {
	Send(endpoint string, value any) error
	Reconnect() error
	IsConnected() bool
}

// AIClient generates text and keeps the per-user remainder stash for split
// long responses.
type AIClient interface {
	Generate(ctx context.Context, user, prompt string, useHistory bool) (string, error)
	StoreRemainder(userID, text string)
	TakeRemainder(userID string) (string, bool)
}

// Handler is the uniform redemption handler contract.
type Handler interface {
	Handle(ctx context.Context, r *Redemption) RedemptionResult
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, r *Redemption) RedemptionResult

func (f HandlerFunc) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	return f(ctx, r)
}
