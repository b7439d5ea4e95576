package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zoravur/liveq/internal/reactive"
)

func SetupRoutes(reg *reactive.Registry, factory reactive.ActionFactory) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	ws := &WSHandler{Registry: reg, Factory: factory}
	r.Get("/ws", ws.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/live", func(w http.ResponseWriter, req *http.Request) {
			handleLiveSubscriptions(w, req, reg)
		})
	})

	return r
}
