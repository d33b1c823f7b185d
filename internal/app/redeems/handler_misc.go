package redeems

import "context"

// refundHandler posts the cancellation verdict itself; the dispatcher knows
// not to post a second one for refund redeems.
type refundHandler struct {
	rewards RewardService
}

func (h *refundHandler) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	if err := h.rewards.SetRedemptionStatus(ctx, r.RewardID, r.ID, StatusCanceled); err != nil {
		return RedemptionResult{
			Success: false,
			Message: "failed to refund redemption: " + err.Error(),
		}
	}

	return RedemptionResult{
		Success: true,
		Message: "points refunded",
	}
}

// updateTextHandler is a placeholder action: acknowledged, nothing to do yet.
func updateTextHandler() Handler {
	return HandlerFunc(func(context.Context, *Redemption) RedemptionResult {
		return RedemptionResult{Success: true}
	})
}
