package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/jwtauth"
)

// requestTimeout bounds every API call. The websocket route is long-lived
// and sits outside it.
const requestTimeout = 30 * time.Second

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		if h.ws != nil {
			r.Get("/ws", h.ws)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Get("/game/current", h.CurrentGame)
			r.Get("/game/history", h.GameHistory)
			r.Get("/game/archive", h.ArchivedDraws)
			r.Get("/bet/rules", h.BetRules)
			r.Post("/bet", h.PlaceBet)
			r.Get("/user/{id}", h.GetUser)
			r.Get("/user/{id}/bets", h.UserBets)
			r.Get("/payout-calculator", h.PayoutCalculator)

			// operator routes
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(h.tokenAuth))
				r.Use(jwtauth.Authenticator)

				r.Get("/admin/payout-table", h.PayoutTable)
				r.Post("/admin/payout-table", h.UpdatePayout)
				r.Get("/admin/payout-analysis/{spots}", h.PayoutAnalysis)
			})
		})
	})
}

// InitAuth sets the HS256 key used to verify operator tokens. It must be
// called before SetRoutes.
func (h *Handler) InitAuth(secret string) *jwtauth.JWTAuth {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
	return h.tokenAuth
}
