package redeems

import (
	"context"
	"log/slog"
	"time"
)

const oscFramesPerSecond = 60

type oscHandler struct {
	logger *slog.Logger

	osc     OSCSender
	binding OSCBinding
}

func newOSCHandler(logger *slog.Logger, osc OSCSender, redeem *Redeem) Handler {
	if redeem.OSCBinding == nil {
		return HandlerFunc(func(context.Context, *Redemption) RedemptionResult {
			return RedemptionResult{
				Success: false,
				Message: "redeem " + redeem.LocalTitle + " has no osc binding",
			}
		})
	}

	return &oscHandler{
		logger: logger,

		osc:     osc,
		binding: *redeem.OSCBinding,
	}
}

func (h *oscHandler) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	if !h.osc.IsConnected() {
		if err := h.osc.Reconnect(); err != nil {
			return RedemptionResult{
				Success: false,
				Message: "osc reconnect failed: " + err.Error(),
			}
		}
	}

	fire, err := h.binding.Value(h.binding.FireValue)
	if err != nil {
		return RedemptionResult{Success: false, Message: err.Error()}
	}

	if err := h.osc.Send(h.binding.Endpoint, fire); err != nil {
		return RedemptionResult{
			Success: false,
			Message: "osc send failed: " + err.Error(),
		}
	}

	if h.binding.HoldFrames > 0 && h.binding.RestValue != "" {
		hold := time.Duration(h.binding.HoldFrames) * time.Second / oscFramesPerSecond

		go func() {
			select {
			case <-time.After(hold):
			case <-ctx.Done():
				// reset anyway so the avatar parameter is not left firing
			}

			rest, err := h.binding.Value(h.binding.RestValue)
			if err != nil {
				h.logger.Error("bad osc rest value", "endpoint", h.binding.Endpoint, "err", err)
				return
			}

			if err := h.osc.Send(h.binding.Endpoint, rest); err != nil {
				h.logger.Error("failed to reset osc parameter", "endpoint", h.binding.Endpoint, "err", err)
			}
		}()
	}

	return RedemptionResult{Success: true}
}
