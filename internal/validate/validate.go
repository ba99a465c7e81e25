// Package validate checks user-supplied values before they reach a remote
// shell command line.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	// aliasRegex constrains aliases to names tmux accepts as session names
	// and that are safe to interpolate into remote commands.
	// Length: 1-64 characters.
	aliasRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

	// userRegex validates the SSH login user, standard POSIX username rules.
	userRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)
)

// Alias validates a session alias.
func Alias(name string) error {
	if name == "" {
		return fmt.Errorf("alias cannot be empty")
	}
	if !aliasRegex.MatchString(name) {
		return fmt.Errorf("alias must start with a letter or digit and contain only letters, digits, dots, underscores, and hyphens (max 64 characters)")
	}
	return nil
}

// User validates an SSH login username.
func User(name string) error {
	if name == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if !userRegex.MatchString(name) {
		return fmt.Errorf("invalid user %q", name)
	}
	return nil
}

// Port parses and validates a TCP port argument.
func Port(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// Lines parses and validates a line-count argument.
func Lines(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid line count %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("line count must be positive")
	}
	return n, nil
}
