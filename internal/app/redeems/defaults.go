package redeems

// CoinGameTitle is the reserved local title the dispatcher routes to the
// coin-game protocol regardless of the redeem's action kind.
const CoinGameTitle = "coin game"

// DefaultCatalogue is written on first start when no settings file exists.
func DefaultCatalogue() []Redeem {
	return []Redeem{
		{
			LocalTitle:        "mao mao",
			Cost:              555,
			Prompt:            "Ask Mao Mao anything!",
			CooldownSeconds:   120,
			UserInputRequired: true,
			ActionKind:        ActionAIResponse,
			AnnounceInChat:    true,
			Queued:            true,
			ActiveWhenLive:    true,
			ActiveOffline:     true,
		},
		{
			LocalTitle:     CoinGameTitle,
			Cost:           20,
			Prompt:         "Enter the coin game! The price changes with each redemption.",
			ActionKind:     ActionCustom,
			CustomName:     CoinGameTitle,
			AnnounceInChat: true,
			ActiveWhenLive: true,
		},
		{
			LocalTitle:     "toss comfi pillo",
			Cost:           69,
			Prompt:         "toss comfi pillo to see if stremer can catch it!",
			ActionKind:     ActionOSCMessage,
			AnnounceInChat: true,
			ActiveWhenLive: true,
			ActiveOffline:  true,
			ActiveGames:    []string{"VRChat"},
			OSCBinding: &OSCBinding{
				Endpoint:   "/avatar/parameters/ComfiPillo",
				ValueType:  "bool",
				FireValue:  "true",
				RestValue:  "false",
				HoldFrames: 90,
			},
		},
	}
}
