package redeems

import (
	"fmt"
	"strconv"
)

// Status is a redemption verdict as the reward service understands it.
type Status string

const (
	StatusUnfulfilled Status = "UNFULFILLED"
	StatusFulfilled   Status = "FULFILLED"
	StatusCanceled    Status = "CANCELED"
)

// ActionKind selects the handler for a redeem at dispatch time. Custom kinds
// carry the handler name in Redeem.CustomName.
type ActionKind string

const (
	ActionAIResponse            ActionKind = "ai_response"
	ActionAIResponseWithHistory ActionKind = "ai_response_with_history"
	ActionAIResponseNoHistory   ActionKind = "ai_response_no_history"
	ActionOSCMessage            ActionKind = "osc_message"
	ActionRefund                ActionKind = "refund"
	ActionUpdateText            ActionKind = "update_text"
	ActionCustom                ActionKind = "custom"
)

func (k ActionKind) valid() bool {
	switch k {
	case ActionAIResponse, ActionAIResponseWithHistory, ActionAIResponseNoHistory,
		ActionOSCMessage, ActionRefund, ActionUpdateText, ActionCustom:
		return true
	default:
		return false
	}
}

// OSCBinding describes the avatar parameter a redeem drives. Fire and rest
// values are kept as strings in the settings file and converted per ValueType
// when sent.
type OSCBinding struct {
	Endpoint   string `json:"endpoint"`
	ValueType  string `json:"value_type"` // "int" | "float" | "bool" | "string"
	FireValue  string `json:"fire_value"`
	RestValue  string `json:"rest_value"`
	HoldFrames int    `json:"hold_frames"` // 60 frames per second; 0 means no reset
}

// Value converts raw according to the binding's value type.
func (b *OSCBinding) Value(raw string) (any, error) {
	switch b.ValueType {
	case "int":
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("osc int value %q: %w", raw, err)
		}
		return int32(v), nil
	case "float":
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("osc float value %q: %w", raw, err)
		}
		return float32(v), nil
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("osc bool value %q: %w", raw, err)
		}
		return v, nil
	case "string":
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown osc value type %q", b.ValueType)
	}
}

// Redeem is one catalogue entry: the local description of a custom channel
// point reward. LocalTitle is the stable key; UpstreamID is adopted from the
// reward service on first reconcile.
type Redeem struct {
	LocalTitle string `json:"local_title"`
	UpstreamID string `json:"upstream_id,omitempty"`

	Cost              int    `json:"cost"`
	Prompt            string `json:"prompt"`
	CooldownSeconds   int    `json:"cooldown_seconds"`
	UserInputRequired bool   `json:"user_input_required"`

	ActionKind ActionKind `json:"action_kind"`
	CustomName string     `json:"custom_name,omitempty"`

	AnnounceInChat           bool `json:"announce_in_chat"`
	RequiresManualCompletion bool `json:"requires_manual_completion"`
	Queued                   bool `json:"queued"`

	ActiveWhenLive bool     `json:"active_when_live"`
	ActiveOffline  bool     `json:"active_offline"`
	ActiveGames    []string `json:"active_games,omitempty"`

	OSCBinding *OSCBinding `json:"osc_binding,omitempty"`
}

func (r *Redeem) validate() error {
	if r.LocalTitle == "" {
		return Conflictf("redeem has empty local_title")
	}

	if r.Cost < 0 {
		return Conflictf("redeem %q has negative cost %d", r.LocalTitle, r.Cost)
	}

	if r.CooldownSeconds < 0 {
		return Conflictf("redeem %q has negative cooldown %d", r.LocalTitle, r.CooldownSeconds)
	}

	if !r.ActionKind.valid() {
		return Conflictf("redeem %q has unknown action kind %q", r.LocalTitle, r.ActionKind)
	}

	if r.ActionKind == ActionCustom && r.CustomName == "" {
		return Conflictf("redeem %q has custom action without custom_name", r.LocalTitle)
	}

	return nil
}

// Redemption is a single viewer act of spending points on a redeem, as
// delivered by the event source.
type Redemption struct {
	ID            string `json:"id"`
	BroadcasterID string `json:"broadcaster_id"`
	RewardID      string `json:"reward_id"`
	RewardTitle   string `json:"reward_title"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	UserInput     string `json:"user_input,omitempty"`
	Status        Status `json:"status"`

	// assigned at dispatch time for queued redeems
	QueueNumber int64 `json:"queue_number,omitempty"`
}

// RedemptionResult is the uniform handler outcome.
type RedemptionResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	QueueNumber int64  `json:"queue_number,omitempty"`
}

// StreamStatus is a consistent snapshot of the live/game pair.
type StreamStatus struct {
	IsLive      bool   `json:"is_live"`
	CurrentGame string `json:"current_game"`
}

// UpstreamReward mirrors the fields of a custom reward the engine cares
// about, as returned by the reward service.
type UpstreamReward struct {
	ID                  string
	Title               string
	Cost                int
	Prompt              string
	IsEnabled           bool
	CooldownSeconds     int
	IsUserInputRequired bool
}

// RewardFields is the writable subset pushed upstream on create/update.
type RewardFields struct {
	Title               string
	Cost                int
	Prompt              string
	CooldownSeconds     int
	IsUserInputRequired bool
	IsEnabled           bool
}
