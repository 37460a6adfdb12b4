package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/mw"
)

func init() { Register("check", registerCheck) }

func registerCheck(r chi.Router, d deps.Deps) {
	if d.Trigger == nil {
		return
	}
	r.With(
		mw.AllowOnlyCIDRs(d.AllowedCIDRs, d.TrustProxy, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Every:      d.CheckInterval,
			Burst:      d.CheckBurst,
			TrustProxy: d.TrustProxy,
		}),
	).Post("/check", handlers.Check(d))
}
