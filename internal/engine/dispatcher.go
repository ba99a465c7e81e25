// Package engine maps operations onto the transport and session layers and
// normalizes their outcomes into per-operation results. It is the single
// entry point callers use; the CLI is a thin layer over it.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessh/sessh/internal/protocol"
	"github.com/sessh/sessh/internal/session"
	"github.com/sessh/sessh/internal/transport"
)

// Channel is the slice of a control channel the dispatcher needs: command
// execution for the session layer and an interactive path for attach.
type Channel interface {
	Exec(ctx context.Context, command string) (*transport.ExecResult, error)
	Interactive(ctx context.Context, command string) error
}

// TransportManager owns one control channel per alias. *transport.Manager
// satisfies it through the adapter in New; tests substitute a fake.
type TransportManager interface {
	Ensure(ctx context.Context, alias string, target transport.Target) (Channel, error)
	Get(alias string) (Channel, bool)
	IsLive(alias string) bool
	Close(alias string) error
}

// Options tune the dispatcher's command-completion protocol and log capture.
type Options struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
	CaptureLines int
	LogsLines    int
}

// DefaultLogsLines is how many scroll-back lines logs returns when the caller
// does not ask for a specific count.
const DefaultLogsLines = 300

func (o Options) withDefaults() Options {
	if o.LogsLines <= 0 {
		o.LogsLines = DefaultLogsLines
	}
	return o
}

// Dispatcher serializes operations per alias and drives the
// transport/session/protocol call sequences behind each operation.
type Dispatcher struct {
	transport TransportManager
	opts      Options
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Dispatcher over a real SSH transport manager.
func New(tm *transport.Manager, opts Options, log zerolog.Logger) *Dispatcher {
	return NewWithTransport(transportAdapter{tm}, opts, log)
}

// NewWithTransport builds a Dispatcher over any TransportManager.
func NewWithTransport(tm TransportManager, opts Options, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: tm,
		opts:      opts.withDefaults(),
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockAlias serializes operations on one alias. Concurrent runs against the
// same alias are undefined under the marker protocol, so every operation
// holds this lock for its full duration.
func (d *Dispatcher) lockAlias(alias string) func() {
	d.mu.Lock()
	l, ok := d.locks[alias]
	if !ok {
		l = &sync.Mutex{}
		d.locks[alias] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ensure brings up the control channel and the remote session for alias,
// creating whichever is missing.
func (d *Dispatcher) ensure(ctx context.Context, alias string, target transport.Target) (Channel, *session.Manager, error) {
	ch, err := d.transport.Ensure(ctx, alias, target)
	if err != nil {
		return nil, nil, err
	}
	sm := session.NewManager(ch, d.log)
	if err := sm.Ensure(ctx, alias); err != nil {
		return nil, nil, err
	}
	return ch, sm, nil
}

// Open brings up the control channel and remote session for alias.
// Re-invoking it when both already exist is a no-op that still succeeds.
func (d *Dispatcher) Open(ctx context.Context, alias string, target transport.Target) (*OpenResult, error) {
	defer d.lockAlias(alias)()

	if _, _, err := d.ensure(ctx, alias, target); err != nil {
		return &OpenResult{OK: false, Op: "open", Err: err.Error()}, err
	}
	return &OpenResult{OK: true, Op: "open"}, nil
}

// Run dispatches a command into the alias's session and waits for its
// completion marker. On timeout the remote command is left running and a
// partial result with OK=false is returned alongside the error.
func (d *Dispatcher) Run(ctx context.Context, alias string, target transport.Target, command string) (*RunResult, error) {
	defer d.lockAlias(alias)()

	_, sm, err := d.ensure(ctx, alias, target)
	if err != nil {
		return &RunResult{OK: false, Op: "run", Err: err.Error()}, err
	}

	outcome, err := protocol.Run(ctx, sm.Console(alias), command, protocol.Options{
		PollInterval: d.opts.PollInterval,
		Timeout:      d.opts.RunTimeout,
		CaptureLines: d.opts.CaptureLines,
	})
	if err != nil {
		// Timeouts and protocol failures still yield a structured result so
		// callers can distinguish them from hard transport errors.
		return &RunResult{OK: false, Op: "run", Err: err.Error()}, err
	}

	d.log.Debug().Str("alias", alias).Int("exit_code", outcome.ExitCode).Msg("command completed")
	return &RunResult{OK: true, Op: "run", ExitCode: &outcome.ExitCode, Output: outcome.Output}, nil
}

// Logs captures the last lines of the session's scroll-back buffer. When the
// session holds fewer lines, everything available is returned.
func (d *Dispatcher) Logs(ctx context.Context, alias string, target transport.Target, lines int) (*LogsResult, error) {
	defer d.lockAlias(alias)()

	if lines <= 0 {
		lines = d.opts.LogsLines
	}

	_, sm, err := d.ensure(ctx, alias, target)
	if err != nil {
		return nil, err
	}
	output, err := sm.Capture(ctx, alias, lines)
	if err != nil {
		return nil, err
	}
	return &LogsResult{OK: true, Op: "logs", Output: output}, nil
}

// Status reports channel and session liveness without creating anything.
// Without a live channel the remote session cannot be queried, so it is
// reported down as well.
func (d *Dispatcher) Status(ctx context.Context, alias string) (*StatusResult, error) {
	defer d.lockAlias(alias)()

	result := &StatusResult{OK: true, Op: "status"}
	if !d.transport.IsLive(alias) {
		return result, nil
	}
	result.Master = 1

	ch, ok := d.transport.Get(alias)
	if !ok {
		return result, nil
	}
	live, err := session.NewManager(ch, d.log).IsLive(ctx, alias)
	if err != nil {
		return nil, err
	}
	if live {
		result.Session = 1
	}
	return result, nil
}

// Close tears down whatever currently exists for alias: the remote session
// when a channel is live to reach it, then the channel itself. Idempotent.
func (d *Dispatcher) Close(ctx context.Context, alias string) (*CloseResult, error) {
	defer d.lockAlias(alias)()

	if ch, ok := d.transport.Get(alias); ok {
		if err := session.NewManager(ch, d.log).Destroy(ctx, alias); err != nil {
			// The channel may have died out-of-band; closing it is still
			// worthwhile, so report after the teardown.
			d.log.Debug().Str("alias", alias).Err(err).Msg("session teardown failed during close")
		}
	}
	if err := d.transport.Close(alias); err != nil {
		return nil, err
	}
	return &CloseResult{OK: true, Op: "close"}, nil
}

// Attach hands the caller's terminal to the remote session. It ensures the
// channel and session exist first, then blocks until the user detaches.
func (d *Dispatcher) Attach(ctx context.Context, alias string, target transport.Target) error {
	defer d.lockAlias(alias)()

	ch, _, err := d.ensure(ctx, alias, target)
	if err != nil {
		return err
	}
	return ch.Interactive(ctx, session.AttachCommand(alias))
}

// transportAdapter lifts *transport.Manager's concrete channel type into the
// dispatcher's Channel interface.
type transportAdapter struct {
	m *transport.Manager
}

func (a transportAdapter) Ensure(ctx context.Context, alias string, target transport.Target) (Channel, error) {
	return a.m.Ensure(ctx, alias, target)
}

func (a transportAdapter) Get(alias string) (Channel, bool) {
	return a.m.Get(alias)
}

func (a transportAdapter) IsLive(alias string) bool {
	return a.m.IsLive(alias)
}

func (a transportAdapter) Close(alias string) error {
	return a.m.Close(alias)
}
