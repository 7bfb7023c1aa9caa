package bridge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// DefaultEngine is the engine binary looked up on PATH
const DefaultEngine = "dbt"

// Invocation records one engine run
type Invocation struct {
	Args     []string
	Output   []byte
	ExitCode int
	Duration time.Duration
}

// Runner invokes the external engine in a project directory
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (*Invocation, error)
}

// ExecRunner runs the engine as a child process
type ExecRunner struct {
	Binary string
	Env    []string
}

// NewExecRunner creates a runner for binary, falling back to DefaultEngine
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = DefaultEngine
	}
	return &ExecRunner{Binary: binary}
}

// Run executes the binary and captures combined output. A non-zero exit is
// reported both in ExitCode and as the returned error.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	inv := &Invocation{
		Args:     args,
		Output:   out.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		inv.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		inv.ExitCode = -1
	}
	return inv, err
}
