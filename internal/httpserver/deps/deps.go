package deps

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/status"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Tracker *status.Tracker // last cycle, read by /status and /readyz
	Metrics http.Handler    // Prometheus exposition served on /metrics
	Trigger func() bool     // queues a check cycle, false when one is already queued

	AllowedCIDRs  []string      // restricts /status and /check, empty = no restriction
	TrustProxy    bool          // resolve the client from X-Forwarded-For / X-Real-IP
	CheckInterval time.Duration // one POST /check token per interval and client
	CheckBurst    int
}
