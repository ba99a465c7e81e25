// Package protocol turns "type text into a shell" into "run a command and
// learn its exit status". The underlying session offers no structured RPC, so
// completion is detected by appending a single-use marker to the dispatched
// command and polling the scroll-back buffer until the marker line appears.
package protocol

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default timing parameters, overridable through Options.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultTimeout      = 120 * time.Second
	DefaultCaptureLines = 2000
)

const markerPrefix = "__SESSH_"

// Console is the minimal session surface the protocol needs. Tests inject a
// fake whose output arrives on a controlled schedule.
type Console interface {
	Send(ctx context.Context, keystrokes string) error
	Capture(ctx context.Context, lines int) (string, error)
}

// Options tune the poll loop.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	CaptureLines int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CaptureLines <= 0 {
		o.CaptureLines = DefaultCaptureLines
	}
	return o
}

// Outcome is the recovered result of one dispatched command.
type Outcome struct {
	Output   string
	ExitCode int
}

// TimeoutError reports that the completion marker was never observed within
// the budget. The remote command may still be running; nothing is cancelled.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command did not complete within %s (it may still be running)", e.Timeout)
}

// ParseError reports that the buffer contained a marker line that did not
// yield a usable exit status.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse exit status from marker line %q", e.Line)
}

// newMarker returns a single-use token unlikely to collide with real output.
func newMarker() string {
	return markerPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + "__"
}

// markerLineRe matches the real completion line: the marker at the start of
// its own line, immediately followed by a colon and the exit status digits.
// Substring lookalikes inside command output never match.
func markerLineRe(marker string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(marker) + `:([0-9]+)$`)
}

// anyMarkerLineRe matches any completed marker line from an earlier Run, used
// to bound how far back output extraction reaches.
var anyMarkerLineRe = regexp.MustCompile(`^` + markerPrefix + `[0-9a-f]{32}__:[0-9]+$`)

// Run sends command into the console and polls until its completion marker
// appears or the timeout elapses. On success it returns the command's output
// (marker line stripped) and exit status.
func Run(ctx context.Context, console Console, command string, opts Options) (*Outcome, error) {
	opts = opts.withDefaults()
	marker := newMarker()

	// The marker echo runs right after the command, so "$?" still holds the
	// command's exit status.
	composite := fmt.Sprintf("%s; printf '%%s:%%d\\n' '%s' \"$?\"", command, marker)
	if err := console.Send(ctx, composite); err != nil {
		return nil, err
	}

	re := markerLineRe(marker)
	deadline := time.Now().Add(opts.Timeout)
	for {
		captured, err := console.Capture(ctx, opts.CaptureLines)
		if err != nil {
			return nil, err
		}
		if outcome, found, err := extract(captured, marker, re); err != nil {
			return nil, err
		} else if found {
			return outcome, nil
		}

		if time.Now().After(deadline) {
			return nil, &TimeoutError{Command: command, Timeout: opts.Timeout}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.PollInterval):
		}
	}
}

// extract locates the completion marker in the captured buffer and splits out
// the command's output. Output spans the lines after the echoed composite
// command (the line where the marker token appears mid-line) up to the marker
// line itself.
func extract(captured, marker string, re *regexp.Regexp) (*Outcome, bool, error) {
	lines := strings.Split(captured, "\n")

	end := -1
	var match []string
	for i := len(lines) - 1; i >= 0; i-- {
		if m := re.FindStringSubmatch(lines[i]); m != nil {
			end = i
			match = m
			break
		}
	}
	if end < 0 {
		return nil, false, nil
	}

	exitCode, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, false, &ParseError{Line: lines[end]}
	}

	// Output starts after the previous command's completion marker (or at the
	// top of the buffer), skipping the echoed composite line. The echo is the
	// first line carrying the marker token: any later occurrence is command
	// output and must be preserved verbatim.
	start := 0
	for i := end - 1; i >= 0; i-- {
		if anyMarkerLineRe.MatchString(lines[i]) {
			start = i + 1
			break
		}
	}
	for i := start; i < end; i++ {
		if strings.Contains(lines[i], marker) {
			start = i + 1
			break
		}
	}

	output := strings.Join(lines[start:end], "\n")
	return &Outcome{Output: strings.TrimRight(output, "\n"), ExitCode: exitCode}, true, nil
}
