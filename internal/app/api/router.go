package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"

	"github.com/kittynXR/mewbot/pkg/slg"
)

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := api.logger.With("request_id", middleware.GetReqID(r.Context()))
			next.ServeHTTP(w, r.WithContext(slg.WithSlog(r.Context(), logger)))
		})
	})

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.StripSlashes)

	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(router chi.Router) {
		router.Get("/redeems", api.listRedeems)
		router.Post("/redeems", api.addRedeem)
		router.Post("/redeems/{title}/toggle", api.toggleRedeem)
		router.Post("/redeems/{title}/games", api.setActiveGames)
		router.Post("/redeems/{title}/offline", api.setOfflineActive)

		router.Post("/redemptions/{reward_id}/{redemption_id}/complete", api.completeRedemption)
		router.Post("/redemptions/{reward_id}/{redemption_id}/cancel", api.cancelRedemption)

		router.Get("/coingame", api.coinGameState)
		router.Post("/coingame/reset", api.resetCoinGame)

		router.Get("/status", api.streamStatus)
		router.Post("/reconcile", api.reconcile)

		router.Get("/history", api.recentHistory)
	})

	router.Get("/ws", api.wsHandler)

	return router
}
