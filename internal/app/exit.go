package app

import (
	"errors"

	"github.com/MrSnakeDoc/checkvpn/internal/config"
	"github.com/MrSnakeDoc/checkvpn/internal/engine"
	"github.com/MrSnakeDoc/checkvpn/internal/scheduler"
)

// Process exit statuses.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitInvalidConf  = 2
	ExitDNS          = 3
	ExitNetworkDown  = 4
	ExitIdentityFail = 5
)

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, config.ErrInvalid) {
		return ExitInvalidConf
	}

	var ce *scheduler.CycleError
	if !errors.As(err, &ce) {
		return ExitError
	}
	switch {
	case ce.DNSFailure():
		return ExitDNS
	case ce.Outcome == engine.NoActionNetworkDown:
		return ExitNetworkDown
	case ce.Outcome == engine.NoActionIdentityUnknown:
		return ExitIdentityFail
	default:
		return ExitError
	}
}
