package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Cycles uint64 `json:"cycles"`
}

// Readyz turns ready once the first check cycle has finished.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycles := d.Tracker.Cycles()
		code := http.StatusOK
		if cycles == 0 {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readyzResponse{Ready: cycles > 0, Cycles: cycles})
	}
}
