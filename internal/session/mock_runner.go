package session

import (
	"context"

	"github.com/sessh/sessh/internal/transport"
)

// MockRunner is a test double that records commands and returns configured
// results.
type MockRunner struct {
	ExecFunc func(ctx context.Context, command string) (*transport.ExecResult, error)
	Commands []string
}

// Exec records the command and delegates to ExecFunc.
func (m *MockRunner) Exec(ctx context.Context, command string) (*transport.ExecResult, error) {
	m.Commands = append(m.Commands, command)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, command)
	}
	return &transport.ExecResult{}, nil
}
