package redeems

import (
	"context"
	"strings"

	"github.com/kittynXR/mewbot/pkg/tools"
)

// responseSoftCap is the chat-friendly length limit for AI answers. Longer
// answers are split at a sentence boundary and the tail is stashed for the
// viewer's !continue.
const responseSoftCap = 500

type aiHandler struct {
	ai AIClient

	promptTemplate string
	useHistory     bool
}

func newAIHandler(ai AIClient, redeem *Redeem) *aiHandler {
	useHistory := true // ActionAIResponse defaults to history on
	if redeem.ActionKind == ActionAIResponseNoHistory {
		useHistory = false
	}

	return &aiHandler{
		ai: ai,

		promptTemplate: redeem.Prompt,
		useHistory:     useHistory,
	}
}

func (h *aiHandler) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	prompt := h.promptTemplate
	if input := strings.TrimSpace(r.UserInput); input != "" {
		if prompt != "" {
			prompt += "\n"
		}
		prompt += input
	}

	response, err := h.ai.Generate(ctx, r.UserName, prompt, h.useHistory)
	if err != nil {
		return RedemptionResult{
			Success: false,
			Message: "failed to generate AI response: " + err.Error(),
		}
	}

	head, tail := tools.SplitAtSentence(response, responseSoftCap)
	if tail != "" {
		h.ai.StoreRemainder(r.UserID, tail)
	}

	return RedemptionResult{
		Success: true,
		Message: head,
	}
}
