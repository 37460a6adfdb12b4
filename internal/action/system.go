package action

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

const (
	logindDest   = "org.freedesktop.login1"
	logindPath   = dbus.ObjectPath("/org/freedesktop/login1")
	rebootMethod = "org.freedesktop.login1.Manager.Reboot"
)

// Rebooter asks the system to reboot and reports whether the request was
// accepted.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// logindRebooter calls Manager.Reboot on logind over the system bus. The
// reply is awaited so a polkit or permission denial surfaces as an error.
type logindRebooter struct{}

func (logindRebooter) Reboot(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	call := conn.Object(logindDest, logindPath).CallWithContext(ctx, rebootMethod, 0, false)
	if call.Err != nil {
		return fmt.Errorf("logind reboot call failed: %w", call.Err)
	}
	return nil
}

// SystemDispatcher talks to logind and systemd over D-Bus and runs commands
// through sh. Bus connections are opened per action and closed right after.
type SystemDispatcher struct {
	log      logger.Logger
	shell    string
	rebooter Rebooter
}

func NewSystemDispatcher(log logger.Logger) *SystemDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &SystemDispatcher{log: log, shell: "sh", rebooter: logindRebooter{}}
}

func (d *SystemDispatcher) Execute(ctx context.Context, a Action, dryRun bool) error {
	if dryRun {
		d.log.Info("[dry-run] would " + a.String())
		return nil
	}

	switch a.Kind {
	case Reboot:
		return d.reboot(ctx)
	case RestartUnit:
		return d.restartUnit(ctx, a.Arg)
	default:
		return d.runCommand(ctx, a.Arg)
	}
}

func (d *SystemDispatcher) reboot(ctx context.Context) error {
	d.log.Warn("requesting system reboot through logind")
	if err := d.rebooter.Reboot(ctx); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}

func (d *SystemDispatcher) restartUnit(ctx context.Context, unit string) error {
	if unit == "" {
		return errors.New("restart-unit requires a unit name")
	}

	conn, err := sdbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	done := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("restart %s: %w", unit, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("restart %s: job finished with %q", unit, result)
		}
		d.log.Info("unit restarted", logger.String("unit", unit))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runCommand treats a non-zero exit as a logged event, not an error; only a
// failure to start the shell is returned.
func (d *SystemDispatcher) runCommand(ctx context.Context, command string) error {
	if command == "" {
		return errors.New("command action requires a command")
	}

	out, err := exec.CommandContext(ctx, d.shell, "-c", command).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			d.log.Warn("action command exited with non-zero status",
				logger.String("command", command),
				logger.Int("exit_code", exitErr.ExitCode()),
				logger.String("output", string(out)))
			return nil
		}
		return fmt.Errorf("run %q: %w", command, err)
	}

	d.log.Info("action command completed",
		logger.String("command", command),
		logger.String("output", string(out)))
	return nil
}
