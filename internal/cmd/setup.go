package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessh/sessh/internal/config"
	"github.com/sessh/sessh/internal/engine"
	"github.com/sessh/sessh/internal/transport"
	"github.com/sessh/sessh/internal/validate"
)

// invocation bundles everything one command execution needs.
type invocation struct {
	dispatcher *engine.Dispatcher
	cfg        *config.Config
	jsonMode   bool
}

// setup resolves configuration (file, environment, flags — in that order of
// precedence) and builds the engine.
func setup() (*invocation, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if identity != "" {
		cfg.Identity = identity
	}
	if proxyJump != "" {
		cfg.ProxyJump = proxyJump
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	tm, err := transport.NewManager(transport.Options{
		ConnectTimeout: time.Duration(cfg.ConnectTimeout),
		MaxRetries:     cfg.DialRetries,
		InitialDelay:   time.Duration(cfg.RetryDelay),
		MaxDelay:       time.Duration(cfg.RetryMaxDelay),
		KnownHostsPath: cfg.KnownHosts,
	}, logger)
	if err != nil {
		return nil, err
	}

	dispatcher := engine.New(tm, engine.Options{
		PollInterval: time.Duration(cfg.PollInterval),
		RunTimeout:   time.Duration(cfg.RunTimeout),
		CaptureLines: cfg.CaptureLines,
		LogsLines:    cfg.LogsLines,
	}, logger)

	return &invocation{
		dispatcher: dispatcher,
		cfg:        cfg,
		jsonMode:   jsonFlag || os.Getenv("SESSH_JSON") == "1",
	}, nil
}

// parseTarget validates the positional <alias> <user@host> [port] arguments
// and folds the resolved identity and proxy jump into the target.
func (inv *invocation) parseTarget(args []string) (alias string, target transport.Target, err error) {
	alias = args[0]
	if err = validate.Alias(alias); err != nil {
		return "", transport.Target{}, fmt.Errorf("invalid alias: %w", err)
	}

	port := 0
	if len(args) >= 3 {
		port, err = validate.Port(args[2])
		if err != nil {
			return "", transport.Target{}, err
		}
	}
	target, err = transport.NewTarget(args[1], port)
	if err != nil {
		return "", transport.Target{}, err
	}
	if err = validate.User(target.User); err != nil {
		return "", transport.Target{}, err
	}

	target.Identity = inv.cfg.Identity
	target.ProxyJump = inv.cfg.ProxyJump
	return alias, target, nil
}

// emit writes one structured result. JSON mode prints exactly one JSON object
// on stdout; human mode delegates to the per-command renderer.
func (inv *invocation) emit(result interface{}, human func()) error {
	if inv.jsonMode {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	human()
	return nil
}
