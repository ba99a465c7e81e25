package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is used when a Target does not specify one.
const DefaultPort = 22

// Target describes one remote endpoint. Immutable once constructed.
type Target struct {
	User      string
	Host      string
	Port      int
	Identity  string // path to a private key; empty means auto-discover
	ProxyJump string // bastion hop as user@host[:port]; empty means direct
}

// NewTarget builds a Target from a user@host spec and an optional port.
func NewTarget(userHost string, port int) (Target, error) {
	user, host, err := SplitUserHost(userHost)
	if err != nil {
		return Target{}, err
	}
	if port == 0 {
		port = DefaultPort
	}
	return Target{User: user, Host: host, Port: port}, nil
}

// Addr returns the dialable host:port address.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// String renders the target as user@host:port for diagnostics.
func (t Target) String() string {
	return fmt.Sprintf("%s@%s", t.User, t.Addr())
}

// SplitUserHost parses a user@host spec.
func SplitUserHost(s string) (user, host string, err error) {
	i := strings.Index(s, "@")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("invalid target %q: expected user@host", s)
	}
	return s[:i], s[i+1:], nil
}

// ParseProxyJump parses a bastion spec of the form user@host[:port].
func ParseProxyJump(spec string) (Target, error) {
	hostPart := spec
	port := DefaultPort
	if i := strings.LastIndex(spec, ":"); i > strings.Index(spec, "@") {
		p, err := strconv.Atoi(spec[i+1:])
		if err != nil || p <= 0 || p > 65535 {
			return Target{}, fmt.Errorf("invalid proxy jump port in %q", spec)
		}
		port = p
		hostPart = spec[:i]
	}
	user, host, err := SplitUserHost(hostPart)
	if err != nil {
		return Target{}, fmt.Errorf("invalid proxy jump spec %q: expected user@host[:port]", spec)
	}
	return Target{User: user, Host: host, Port: port}, nil
}
