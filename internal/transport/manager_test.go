package transport

import (
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.KnownHostsPath == "" {
		opts.KnownHostsPath = filepath.Join(t.TempDir(), "known_hosts")
	}
	m, err := NewManager(opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_Defaults(t *testing.T) {
	m := newTestManager(t, Options{})
	if m.opts.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultConnectTimeout, m.opts.ConnectTimeout)
	}
	if m.opts.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected maxRetries %d, got %d", DefaultMaxRetries, m.opts.MaxRetries)
	}
	if m.opts.InitialDelay != DefaultInitialDelay {
		t.Errorf("expected initialDelay %v, got %v", DefaultInitialDelay, m.opts.InitialDelay)
	}
	if m.opts.MaxDelay != DefaultMaxDelay {
		t.Errorf("expected maxDelay %v, got %v", DefaultMaxDelay, m.opts.MaxDelay)
	}
}

func TestBackoffDelay(t *testing.T) {
	m := newTestManager(t, Options{
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
	})

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},  // 1 * 2^0 = 1s
		{2, 2 * time.Second},  // 1 * 2^1 = 2s
		{3, 4 * time.Second},  // 1 * 2^2 = 4s
		{4, 8 * time.Second},  // 1 * 2^3 = 8s
		{5, 10 * time.Second}, // 1 * 2^4 = 16s, capped at 10s
	}

	for _, tt := range tests {
		got := m.backoffDelay(tt.attempt)
		if got != tt.expected {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestIsLive_AbsentAlias(t *testing.T) {
	m := newTestManager(t, Options{})
	if m.IsLive("nothing") {
		t.Error("expected IsLive to be false for an alias with no channel")
	}
}

func TestGet_AbsentAlias(t *testing.T) {
	m := newTestManager(t, Options{})
	if _, ok := m.Get("nothing"); ok {
		t.Error("expected Get to report absence")
	}
}

func TestClose_AbsentAlias(t *testing.T) {
	m := newTestManager(t, Options{})
	if err := m.Close("nothing"); err != nil {
		t.Errorf("expected nil error closing an absent channel, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "host key change is permanent",
			err:  &HostKeyChangedError{Host: "h", Path: "p"},
			want: false,
		},
		{
			name: "net op error is transient",
			err:  &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			want: true,
		},
		{
			name: "plain error is permanent",
			err:  errors.New("ssh: unable to authenticate"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestChannelError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Alias: "a", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected Error to unwrap to the inner error")
	}
}
