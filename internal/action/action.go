package action

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

type Kind string

const (
	Reboot      Kind = "reboot"
	RestartUnit Kind = "restart-unit"
	Command     Kind = "command"
)

// Kinds lists every accepted action type.
var Kinds = []Kind{Reboot, RestartUnit, Command}

// KindNames joins Kinds for messages.
func KindNames() string {
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func (k Kind) Valid() bool { return slices.Contains(Kinds, k) }

// NeedsArg reports whether the kind is meaningless without an argument.
func (k Kind) NeedsArg() bool { return k == RestartUnit || k == Command }

// Action is what to do when the watched identity is detected.
type Action struct {
	Kind Kind
	Arg  string
}

func (a Action) String() string {
	switch a.Kind {
	case Reboot:
		return "reboot"
	case RestartUnit:
		return fmt.Sprintf("restart unit %s", a.Arg)
	default:
		return fmt.Sprintf("run command %q", a.Arg)
	}
}

// Parse maps a configured type onto an Action. Unknown types run arg as a
// shell command, with a warning.
func Parse(kind, arg string, log logger.Logger) Action {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	if !k.Valid() {
		if log != nil {
			log.Warn("unknown action type, treating as command", logger.String("type", kind))
		}
		k = Command
	}
	return Action{Kind: k, Arg: strings.TrimSpace(arg)}
}

// Dispatcher performs actions. In dry-run it must have no side effect.
type Dispatcher interface {
	Execute(ctx context.Context, a Action, dryRun bool) error
}
