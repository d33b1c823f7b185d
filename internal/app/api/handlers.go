package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kittynXR/mewbot/internal/app/redeems"
	"github.com/kittynXR/mewbot/pkg/slg"
)

func (api *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Error("failed to encode response", "err", err)
	}
}

func (api *API) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch redeems.KindOf(err) {
	case redeems.KindNotFound:
		status = http.StatusNotFound
	case redeems.KindConflict:
		status = http.StatusConflict
	case redeems.KindShuttingDown:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slg.GetSlog(r.Context()).Error("request failed", "err", err)
	}

	api.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON[T any](r *http.Request) (T, error) {
	var v T
	err := json.NewDecoder(r.Body).Decode(&v)

	return v, err
}

func (api *API) listRedeems(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, api.engine.Redeems())
}

func (api *API) addRedeem(w http.ResponseWriter, r *http.Request) {
	redeem, err := readJSON[redeems.Redeem](r)
	if err != nil {
		api.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := api.engine.AddRedeem(redeem); err != nil {
		api.writeErr(w, r, err)
		return
	}

	api.writeJSON(w, http.StatusCreated, redeem)
}

type onRequest struct {
	On bool `json:"on"`
}

func (api *API) toggleRedeem(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[onRequest](r)
	if err != nil {
		api.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := api.engine.ToggleRedeem(chi.URLParam(r, "title"), req.On); err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) setActiveGames(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[struct {
		Games []string `json:"games"`
	}](r)
	if err != nil {
		api.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := api.engine.SetActiveGames(chi.URLParam(r, "title"), req.Games); err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) setOfflineActive(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON[onRequest](r)
	if err != nil {
		api.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := api.engine.SetOfflineActive(chi.URLParam(r, "title"), req.On); err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) completeRedemption(w http.ResponseWriter, r *http.Request) {
	err := api.engine.CompleteRedemption(r.Context(),
		chi.URLParam(r, "reward_id"), chi.URLParam(r, "redemption_id"))
	if err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) cancelRedemption(w http.ResponseWriter, r *http.Request) {
	err := api.engine.CancelRedemption(r.Context(),
		chi.URLParam(r, "reward_id"), chi.URLParam(r, "redemption_id"))
	if err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) coinGameState(w http.ResponseWriter, r *http.Request) {
	price, holder := api.engine.CoinGameState()

	api.writeJSON(w, http.StatusOK, map[string]any{
		"price":  price,
		"holder": holder,
	})
}

func (api *API) resetCoinGame(w http.ResponseWriter, r *http.Request) {
	if err := api.engine.ResetCoinGame(r.Context()); err != nil {
		api.writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *API) streamStatus(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, api.engine.Status())
}

func (api *API) reconcile(w http.ResponseWriter, r *http.Request) {
	api.engine.TriggerReconcile()
	w.WriteHeader(http.StatusAccepted)
}

func (api *API) recentHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	entries, err := api.history.Recent(r.Context(), limit)
	if err != nil {
		api.writeErr(w, r, err)
		return
	}

	api.writeJSON(w, http.StatusOK, entries)
}
