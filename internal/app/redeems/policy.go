package redeems

import (
	"golang.org/x/text/cases"
)

// Active is the activation policy: whether a redeem should be enabled
// upstream given the current stream status. Pure, no I/O.
//
// Live: active_when_live, gated by the game whitelist (empty set matches
// every game). Offline: active_offline.
func Active(r *Redeem, status StreamStatus) bool {
	if !status.IsLive {
		return r.ActiveOffline
	}

	if !r.ActiveWhenLive {
		return false
	}

	if len(r.ActiveGames) == 0 {
		return true
	}

	for _, game := range r.ActiveGames {
		if foldEqual(game, status.CurrentGame) {
			return true
		}
	}

	return false
}

// foldEqual compares game names case-insensitively. Twitch category names are
// operator input, so "vrchat" must match "VRChat".
func foldEqual(a, b string) bool {
	folder := cases.Fold()

	return folder.String(a) == folder.String(b)
}
