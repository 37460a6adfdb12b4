package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Status returns the last cycle snapshot.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := d.Tracker.Last()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no check cycle completed yet"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
