package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

type checkResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// Check queues a cycle without waiting for it.
func Check(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Trigger() {
			d.Logger.Info("manual check triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, checkResponse{Queued: true, Message: "check queued"})
			return
		}

		d.Logger.Warn("manual check already queued",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusTooManyRequests, checkResponse{Queued: false, Message: "a check is already queued"})
	}
}
