package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// ExecResult holds the result of one command execution over a channel.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Channel is a live, authenticated connection to one remote host. It is the
// reusable control channel for an alias: every remote command for that alias
// travels over the same underlying transport.
type Channel struct {
	target  Target
	client  *ssh.Client
	bastion *ssh.Client // non-nil when the connection is tunneled through a proxy jump
}

// Target returns the endpoint this channel is connected to.
func (c *Channel) Target() Target {
	return c.target
}

// Close tears down the connection, including the bastion hop if any.
func (c *Channel) Close() error {
	var firstErr error
	if c.client != nil {
		firstErr = c.client.Close()
		c.client = nil
	}
	if c.bastion != nil {
		if err := c.bastion.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.bastion = nil
	}
	return firstErr
}

// Keepalive exercises the channel without side effects on the remote side.
// An error means the connection is no longer usable.
func (c *Channel) Keepalive() error {
	if c.client == nil {
		return errors.New("channel is closed")
	}
	_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
	return err
}

// Exec runs a command on the remote host and captures its output. A non-zero
// remote exit status is reported in the result, not as an error.
func (c *Channel) Exec(ctx context.Context, command string) (*ExecResult, error) {
	if c.client == nil {
		return nil, errors.New("channel is closed")
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return nil, ctx.Err()
	case err = <-done:
	}

	result := &ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}
	return result, nil
}

// Interactive runs a command with the caller's terminal attached, giving the
// remote process a PTY sized to the local one. Used by attach.
func (c *Channel) Interactive(ctx context.Context, command string) error {
	if c.client == nil {
		return errors.New("channel is closed")
	}

	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	fd := int(os.Stdin.Fd())
	width, height := 80, 40
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw terminal mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm"
	}
	if err := session.RequestPty(termType, height, width, modes); err != nil {
		return fmt.Errorf("failed to request pty: %w", err)
	}

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return ctx.Err()
	case err = <-done:
	}

	return waitError(err)
}

// waitError maps a session Wait failure into a caller-visible error. A clean
// detach makes Wait return nil; a non-zero remote exit is a real failure and
// carries its status.
func waitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr interface{ ExitStatus() int }
	if errors.As(err, &exitErr) {
		return fmt.Errorf("remote command exited with status %d", exitErr.ExitStatus())
	}
	return err
}

// dial establishes a new channel to the target, hopping through the proxy
// jump bastion when one is configured.
func dial(ctx context.Context, target Target, opts dialOptions) (*Channel, error) {
	signer, err := loadPrivateKey(target.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	hostKeyCallback, err := acceptNewHostKeys(opts.knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("host key verification setup failed: %w", err)
	}

	config := &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.connectTimeout,
	}

	if target.ProxyJump == "" {
		client, err := dialDirect(ctx, target.Addr(), config)
		if err != nil {
			return nil, err
		}
		return &Channel{target: target, client: client}, nil
	}

	bastionTarget, err := ParseProxyJump(target.ProxyJump)
	if err != nil {
		return nil, err
	}
	bastionConfig := &ssh.ClientConfig{
		User:            bastionTarget.User,
		Auth:            config.Auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.connectTimeout,
	}
	bastion, err := dialDirect(ctx, bastionTarget.Addr(), bastionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bastion %s: %w", bastionTarget.Addr(), err)
	}

	conn, err := bastion.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		bastion.Close()
		return nil, fmt.Errorf("failed to reach %s via bastion: %w", target.Addr(), err)
	}
	ncc, chans, reqs, err := ssh.NewClientConn(conn, target.Addr(), config)
	if err != nil {
		conn.Close()
		bastion.Close()
		return nil, fmt.Errorf("failed to connect to %s via bastion: %w", target.Addr(), err)
	}

	return &Channel{
		target:  target,
		client:  ssh.NewClient(ncc, chans, reqs),
		bastion: bastion,
	}, nil
}

func dialDirect(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return ssh.NewClient(ncc, chans, reqs), nil
}

// loadPrivateKey loads the configured identity, falling back to the common
// default key locations under ~/.ssh.
func loadPrivateKey(keyPath string) (ssh.Signer, error) {
	if keyPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		keyPaths := []string{
			filepath.Join(homeDir, ".ssh", "id_ed25519"),
			filepath.Join(homeDir, ".ssh", "id_rsa"),
		}
		for _, p := range keyPaths {
			if _, err := os.Stat(p); err == nil {
				keyPath = p
				break
			}
		}
		if keyPath == "" {
			return nil, errors.New("no SSH key found (set identity in config or pass --identity)")
		}
	}

	if len(keyPath) >= 2 && keyPath[:2] == "~/" {
		homeDir, _ := os.UserHomeDir()
		keyPath = filepath.Join(homeDir, keyPath[2:])
	}

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", keyPath, err)
	}
	return signer, nil
}

type dialOptions struct {
	connectTimeout time.Duration
	knownHostsPath string
}
