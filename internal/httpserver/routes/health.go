package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/handlers"
)

func init() { Register("health", registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	r.Get("/health", handlers.Health(d))
	r.Get("/healthz", handlers.Health(d))
	r.Get("/readyz", handlers.Readyz(d))
}
