package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default dial parameters. All of them can be overridden through Options.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = 1 * time.Second
	DefaultMaxDelay       = 8 * time.Second
)

// Error indicates the control channel for an alias could not be established
// or reused.
type Error struct {
	Alias string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport for %q: %v", e.Alias, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configure how a Manager dials new channels.
type Options struct {
	ConnectTimeout time.Duration
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	KnownHostsPath string
}

func (o Options) withDefaults() (Options, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.KnownHostsPath == "" {
		path, err := DefaultKnownHostsPath()
		if err != nil {
			return o, err
		}
		o.KnownHostsPath = path
	}
	return o, nil
}

// Manager owns one control channel per alias. Operations on the same alias
// are serialized; different aliases proceed independently.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	channels map[string]*Channel
	locks    map[string]*sync.Mutex
}

// NewManager builds a Manager with the given options.
func NewManager(opts Options, log zerolog.Logger) (*Manager, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Manager{
		opts:     opts,
		log:      log,
		channels: make(map[string]*Channel),
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// aliasLock returns the mutex guarding one alias, creating it on first use.
func (m *Manager) aliasLock(alias string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[alias]
	if !ok {
		l = &sync.Mutex{}
		m.locks[alias] = l
	}
	return l
}

func (m *Manager) getChannel(alias string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[alias]
}

func (m *Manager) setChannel(alias string, ch *Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch == nil {
		delete(m.channels, alias)
		return
	}
	m.channels[alias] = ch
}

// Ensure returns the live channel for alias, dialing a new one when none
// exists or the existing one no longer answers. Idempotent: a healthy channel
// is returned unchanged.
func (m *Manager) Ensure(ctx context.Context, alias string, target Target) (*Channel, error) {
	l := m.aliasLock(alias)
	l.Lock()
	defer l.Unlock()

	if ch := m.getChannel(alias); ch != nil {
		if err := ch.Keepalive(); err == nil {
			return ch, nil
		}
		m.log.Debug().Str("alias", alias).Msg("existing channel is dead, redialing")
		ch.Close()
		m.setChannel(alias, nil)
	}

	ch, err := m.dialWithRetry(ctx, alias, target)
	if err != nil {
		return nil, err
	}
	m.setChannel(alias, ch)
	return ch, nil
}

// Get returns the channel currently held for alias without probing or
// creating anything.
func (m *Manager) Get(alias string) (*Channel, bool) {
	ch := m.getChannel(alias)
	return ch, ch != nil
}

// IsLive reports whether a channel exists for alias and still answers a
// keepalive. Never creates anything.
func (m *Manager) IsLive(alias string) bool {
	l := m.aliasLock(alias)
	l.Lock()
	defer l.Unlock()

	ch := m.getChannel(alias)
	if ch == nil {
		return false
	}
	return ch.Keepalive() == nil
}

// Close tears down the channel for alias. Closing an absent channel is not an
// error.
func (m *Manager) Close(alias string) error {
	l := m.aliasLock(alias)
	l.Lock()
	defer l.Unlock()

	ch := m.getChannel(alias)
	if ch == nil {
		return nil
	}
	m.setChannel(alias, nil)
	if err := ch.Close(); err != nil {
		return &Error{Alias: alias, Err: err}
	}
	return nil
}

// CloseAll tears down every channel, for process shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]*Channel)
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}

func (m *Manager) dialWithRetry(ctx context.Context, alias string, target Target) (*Channel, error) {
	opts := dialOptions{
		connectTimeout: m.opts.ConnectTimeout,
		knownHostsPath: m.opts.KnownHostsPath,
	}

	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		ch, err := dial(ctx, target, opts)
		if err == nil {
			m.log.Debug().Str("alias", alias).Str("target", target.String()).Int("attempt", attempt).Msg("channel established")
			return ch, nil
		}
		lastErr = err

		if !isTransient(err) || attempt == m.opts.MaxRetries {
			break
		}

		delay := m.backoffDelay(attempt)
		m.log.Debug().Str("alias", alias).Err(err).Dur("backoff", delay).Msg("dial failed, retrying")
		select {
		case <-ctx.Done():
			return nil, &Error{Alias: alias, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	return nil, &Error{Alias: alias, Err: lastErr}
}

// backoffDelay returns initialDelay * 2^(attempt-1), capped at maxDelay.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := m.opts.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.opts.MaxDelay {
			return m.opts.MaxDelay
		}
	}
	if delay > m.opts.MaxDelay {
		return m.opts.MaxDelay
	}
	return delay
}

// isTransient reports whether a dial failure is worth retrying. Host key
// mismatches and authentication failures are permanent; network-level
// failures (refused, unreachable, timeout) are transient.
func isTransient(err error) bool {
	var hostKeyErr *HostKeyChangedError
	if errors.As(err, &hostKeyErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
