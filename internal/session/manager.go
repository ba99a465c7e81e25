// Package session manages named, detachable execution contexts on a remote
// host. Each context is a tmux session whose shell state (working directory,
// environment, background jobs) survives between discrete command dispatches.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sessh/sessh/internal/transport"
)

// Runner executes a command on the remote host. *transport.Channel satisfies
// it; tests substitute a mock.
type Runner interface {
	Exec(ctx context.Context, command string) (*transport.ExecResult, error)
}

// Error indicates the named execution context could not be created or
// queried despite a live channel.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("session %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// tmux exits 127 through the login shell when the binary is missing.
const exitCommandNotFound = 127

// Manager drives the tmux session lifecycle for one channel.
type Manager struct {
	run Runner
	log zerolog.Logger
}

// NewManager returns a Manager executing tmux commands through run.
func NewManager(run Runner, log zerolog.Logger) *Manager {
	return &Manager{run: run, log: log}
}

// Ensure creates the named session when absent and reuses it unchanged when
// present. Reuse is what carries shell state from one command to the next.
func (m *Manager) Ensure(ctx context.Context, name string) error {
	live, err := m.IsLive(ctx, name)
	if err != nil {
		return err
	}
	if live {
		return nil
	}

	m.log.Debug().Str("session", name).Msg("creating remote session")
	cmd := fmt.Sprintf("tmux new-session -d -s %s", quote(name))
	result, err := m.run.Exec(ctx, cmd)
	if err != nil {
		return &Error{Name: name, Err: err}
	}
	if result.ExitCode != 0 {
		return &Error{Name: name, Err: fmt.Errorf("tmux new-session failed (exit %d): %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))}
	}
	return nil
}

// IsLive reports whether the named session exists. Never creates anything.
func (m *Manager) IsLive(ctx context.Context, name string) (bool, error) {
	cmd := fmt.Sprintf("tmux has-session -t %s 2>/dev/null", quote(name))
	result, err := m.run.Exec(ctx, cmd)
	if err != nil {
		return false, &Error{Name: name, Err: err}
	}
	switch {
	case result.ExitCode == 0:
		return true, nil
	case result.ExitCode == exitCommandNotFound:
		return false, &Error{Name: name, Err: fmt.Errorf("tmux not found on remote host; install tmux to use persistent sessions")}
	default:
		// tmux exits 1 both when the session and the server are absent.
		return false, nil
	}
}

// Capture returns the last lines of the session's scroll-back buffer without
// disturbing it. When fewer lines exist, everything available is returned.
func (m *Manager) Capture(ctx context.Context, name string, lines int) (string, error) {
	if lines <= 0 {
		lines = 1
	}
	cmd := fmt.Sprintf("tmux capture-pane -p -J -t %s -S -%d", quote(name), lines)
	result, err := m.run.Exec(ctx, cmd)
	if err != nil {
		return "", &Error{Name: name, Err: err}
	}
	if result.ExitCode != 0 {
		return "", &Error{Name: name, Err: fmt.Errorf("tmux capture-pane failed (exit %d): %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))}
	}
	return strings.ReplaceAll(result.Stdout, "\r\n", "\n"), nil
}

// Send injects keystrokes into the session as if typed, followed by Enter.
// It does not wait for anything to finish and does not read output.
func (m *Manager) Send(ctx context.Context, name, keystrokes string) error {
	cmd := fmt.Sprintf("tmux send-keys -t %s -l -- %s && tmux send-keys -t %s Enter",
		quote(name), quote(keystrokes), quote(name))
	result, err := m.run.Exec(ctx, cmd)
	if err != nil {
		return &Error{Name: name, Err: err}
	}
	if result.ExitCode != 0 {
		return &Error{Name: name, Err: fmt.Errorf("tmux send-keys failed (exit %d): %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))}
	}
	return nil
}

// Destroy terminates the named session. Destroying an absent session is not
// an error.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	cmd := fmt.Sprintf("tmux kill-session -t %s 2>/dev/null", quote(name))
	result, err := m.run.Exec(ctx, cmd)
	if err != nil {
		return &Error{Name: name, Err: err}
	}
	if result.ExitCode != 0 && result.ExitCode != 1 && result.ExitCode != exitCommandNotFound {
		return &Error{Name: name, Err: fmt.Errorf("tmux kill-session failed (exit %d): %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))}
	}
	return nil
}

// AttachCommand returns the tmux invocation that hands a terminal to the
// named session, quoted for the remote shell.
func AttachCommand(name string) string {
	return fmt.Sprintf("tmux attach-session -t %s", quote(name))
}

// Console binds the manager to one session name, exposing the Send/Capture
// pair the completion protocol polls against.
func (m *Manager) Console(name string) *Console {
	return &Console{m: m, name: name}
}

// Console is the send/capture view of one named session.
type Console struct {
	m    *Manager
	name string
}

// Send injects keystrokes into the bound session.
func (c *Console) Send(ctx context.Context, keystrokes string) error {
	return c.m.Send(ctx, c.name, keystrokes)
}

// Capture reads the last lines of the bound session's buffer.
func (c *Console) Capture(ctx context.Context, lines int) (string, error) {
	return c.m.Capture(ctx, c.name, lines)
}

// quote wraps s in single quotes for the remote shell, escaping embedded
// single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
