package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/mw"
)

func init() { Register("status", registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRs(d.AllowedCIDRs, d.TrustProxy, d.Logger)).Get("/status", handlers.Status(d))
}
