package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a plugin runs past the executor's timeout.
var ErrTimeout = errors.New("plugin execution timeout")

// Executor runs plugin executables, one request per process.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills plugins after timeoutMs.
func NewExecutor(timeoutMs int) *Executor {
	return &Executor{timeout: time.Duration(timeoutMs) * time.Millisecond}
}

// Timeout returns the per-request limit.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute writes req to the plugin's stdin as JSON and parses its stdout as a
// Response. A plugin that reports failure in its Response is not an error.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Stdin = bytes.NewReader(payload)

	out, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s: %w after %s", p.Manifest.Name, ErrTimeout, e.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := firstLine(exitErr.Stderr); msg != "" {
				return nil, fmt.Errorf("run %s: %w: %s", p.Manifest.Name, err, msg)
			}
		}
		return nil, fmt.Errorf("run %s: %w", p.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(out), &resp); err != nil {
		return nil, fmt.Errorf("decode %s response %q: %w", p.Manifest.Name, firstLine(out), err)
	}
	return &resp, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
