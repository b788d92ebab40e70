package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/games", h.CreateGame)
			r.Route("/games/{code}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Delete("/", h.DeleteGame)
				r.Post("/players", h.JoinGame)
				r.Delete("/players/{playerId}", h.KickPlayer)
				r.Put("/start", h.StartGame)
				r.Put("/turn", h.PlayTurn)
				r.Put("/skip", h.SkipTurn)
				r.Put("/reset", h.ResetGame)
			})

			r.Get("/players", h.FindPlayer)
			r.Post("/players/{playerId}/invest", h.Invest)
			r.Put("/players/{playerId}/advices/viewed", h.AdvicesViewed)
		})
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	log.Debugf("DEBUG: JWT for testing expires soon : %s", tokenString)
}
