// Package bridge materializes a dataset and its rule document into an engine
// project, runs the engine and normalizes what it reports.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

// DefaultTimeout bounds a single engine invocation
const DefaultTimeout = 10 * time.Minute

// Steps are the engine commands run in order: materialize, then validate
var Steps = []string{"build", "test"}

// Bridge drives the external engine for one project layout
type Bridge struct {
	layout  Layout
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Bridge
type Option func(*Bridge)

// WithTimeout sets the per-invocation timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a bridge
func New(layout Layout, runner Runner, opts ...Option) *Bridge {
	b := &Bridge{
		layout:  layout,
		runner:  runner,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Layout returns the project layout
func (b *Bridge) Layout() Layout {
	return b.layout
}

// RunAndTest materializes the inputs then runs each step against the model.
// A failed step with no readable results becomes a single error row; partial
// results are kept. An error is returned only when materializing fails or the
// context ends.
func (b *Bridge) RunAndTest(ctx context.Context, dataset io.Reader, document []byte, model string) ([]ResultRow, error) {
	paths, err := b.layout.Materialize(dataset, document, model)
	if err != nil {
		return nil, dqerrors.EngineFailure("materialize", err)
	}
	b.logger.Debug("materialized model",
		zap.String("model", model),
		zap.String("data", paths.Data),
		zap.String("query", paths.Query),
		zap.String("document", paths.Document),
	)

	var rows []ResultRow
	for _, step := range Steps {
		stepRows, err := b.invoke(ctx, step, model)
		rows = append(rows, stepRows...)
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func (b *Bridge) invoke(ctx context.Context, step, model string) ([]ResultRow, error) {
	resultsPath := filepath.Join(b.layout.ProjectDir, ResultsFile)
	if err := os.Remove(resultsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, dqerrors.EngineFailure(step, err)
	}

	runCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	args := []string{step, "--select", model}
	logger := b.logger.With(zap.String("step", step), zap.String("model", model))
	logger.Info("invoking engine", zap.Strings("args", args))

	start := time.Now()
	inv, runErr := b.runner.Run(runCtx, b.layout.ProjectDir, args...)
	elapsed := time.Since(start)
	if runErr != nil && runCtx.Err() != nil {
		runErr = runCtx.Err()
	}
	if inv != nil && inv.Duration > 0 {
		elapsed = inv.Duration
	}

	rows, readErr := ReadResults(b.layout.ProjectDir)

	if runErr == nil && readErr == nil {
		logger.Info("engine finished", zap.Int("results", len(rows)), zap.Duration("elapsed", elapsed))
		return rows, nil
	}

	if readErr != nil {
		cause := runErr
		if cause == nil {
			cause = readErr
		}
		logger.Warn("engine produced no readable results", zap.Error(cause))
		rows = []ResultRow{errorRow(step, model, elapsed, cause, inv)}
	} else {
		logger.Warn("engine reported failures", zap.Error(runErr), zap.Int("results", len(rows)))
	}

	if err := ctx.Err(); err != nil {
		return rows, dqerrors.EngineFailure(step, err)
	}
	return rows, nil
}

func errorRow(step, model string, elapsed time.Duration, cause error, inv *Invocation) ResultRow {
	msg := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = fmt.Sprintf("timed out after %s", elapsed.Round(time.Millisecond))
	}
	if inv != nil {
		if out := strings.TrimSpace(string(inv.Output)); out != "" {
			msg = msg + ": " + lastLine(out)
		}
	}

	return ResultRow{
		Name:     fmt.Sprintf("%s %s", step, model),
		Status:   IconFail,
		Raw:      "error",
		Duration: elapsed.Seconds(),
		Message:  msg,
	}
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
