package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyChangedError signals that a host presented a key different from the
// one previously recorded. This is a trust boundary: it is never retried and
// never bypassed automatically.
type HostKeyChangedError struct {
	Host string
	Path string
}

func (e *HostKeyChangedError) Error() string {
	return fmt.Sprintf("host key for %s has changed (recorded in %s); refusing to connect", e.Host, e.Path)
}

// DefaultKnownHostsPath returns ~/.ssh/known_hosts.
func DefaultKnownHostsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ssh", "known_hosts"), nil
}

// acceptNewHostKeys returns a callback that verifies host keys against the
// given known_hosts file. Unknown hosts are accepted and recorded; a key that
// differs from the recorded one is rejected.
func acceptNewHostKeys(path string) (ssh.HostKeyCallback, error) {
	if err := ensureKnownHostsFile(path); err != nil {
		return nil, err
	}

	verify, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts %s: %w", path, err)
	}

	// Serializes appends when several channels dial concurrently.
	var mu sync.Mutex

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			return &HostKeyChangedError{Host: hostname, Path: path}
		}

		mu.Lock()
		defer mu.Unlock()
		if err := appendKnownHost(path, hostname, remote, key); err != nil {
			return fmt.Errorf("failed to record host key for %s: %w", hostname, err)
		}
		return nil
	}, nil
}

func ensureKnownHostsFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create known_hosts %s: %w", path, err)
	}
	return f.Close()
}

func appendKnownHost(path, hostname string, remote net.Addr, key ssh.PublicKey) error {
	addresses := []string{knownhosts.Normalize(hostname)}
	if remote != nil {
		remoteNorm := knownhosts.Normalize(remote.String())
		if remoteNorm != addresses[0] {
			addresses = append(addresses, remoteNorm)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintln(f, knownhosts.Line(addresses, key))
	return err
}
