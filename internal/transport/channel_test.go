package transport

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// exitStatusError stands in for the ssh package's exit error, which cannot be
// constructed outside it.
type exitStatusError struct {
	status int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("Process exited with status %d", e.status)
}

func (e *exitStatusError) ExitStatus() int {
	return e.status
}

func TestWaitError(t *testing.T) {
	t.Run("clean detach", func(t *testing.T) {
		if err := waitError(nil); err != nil {
			t.Errorf("expected nil for a clean detach, got %v", err)
		}
	})

	t.Run("remote failure carries exit status", func(t *testing.T) {
		err := waitError(&exitStatusError{status: 1})
		if err == nil {
			t.Fatal("expected error for a non-zero remote exit")
		}
		if !strings.Contains(err.Error(), "status 1") {
			t.Errorf("expected exit status in error, got %q", err)
		}
	})

	t.Run("wrapped exit error", func(t *testing.T) {
		wrapped := fmt.Errorf("wait: %w", &exitStatusError{status: 127})
		err := waitError(wrapped)
		if err == nil || !strings.Contains(err.Error(), "status 127") {
			t.Errorf("expected exit status from wrapped error, got %v", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		inner := errors.New("connection lost")
		if err := waitError(inner); !errors.Is(err, inner) {
			t.Errorf("expected the original error, got %v", err)
		}
	})
}
