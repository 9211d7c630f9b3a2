package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/shlex"
	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/hubblepad/internal/logger"
	"github.com/harunnryd/hubblepad/internal/pathutil"
	"github.com/harunnryd/hubblepad/internal/store"
)

const (
	ErrMsgNoOutput  = "Hook produced no output"
	ErrMsgFailed    = "Hook failed"
	ErrMsgTimeout   = "Hook timeout"
	ErrMsgCancelled = "Hook cancelled"

	// waitDelay bounds how long Wait blocks on output pipes after the
	// process group has been killed.
	waitDelay = 5 * time.Second
)

// Result is the outcome of one hook execution.
type Result struct {
	RunID    string
	OK       bool
	Items    []json.RawMessage
	Error    string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Executor runs a hook command and interprets its output.
type Executor interface {
	Run(ctx context.Context, def store.HookDefinition) Result
}

type RunnerConfig struct {
	// Root resolves relative working directories.
	Root          string
	Shell         string
	Timeout       time.Duration
	StderrExcerpt int
}

// Runner executes hook commands through the platform shell.
type Runner struct {
	root          string
	shell         string
	timeout       time.Duration
	stderrExcerpt int
}

func NewRunner(cfg RunnerConfig) *Runner {
	shell := cfg.Shell
	if shell == "" {
		shell = defaultShell
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	excerpt := cfg.StderrExcerpt
	if excerpt <= 0 {
		excerpt = 1000
	}
	return &Runner{
		root:          cfg.Root,
		shell:         shell,
		timeout:       timeout,
		stderrExcerpt: excerpt,
	}
}

// Run executes def.Cmd with def.Cwd resolved under the runner root.
// Failures never surface as Go errors; they are described in Result.
func (r *Runner) Run(ctx context.Context, def store.HookDefinition) Result {
	runID := ulid.Make().String()
	dir := pathutil.ResolveUnder(r.root, def.Cwd)
	log := logger.From(ctx).With(
		"hook", def.Name,
		"run_id", runID,
		"program", programName(def.Cmd),
	)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.shell, shellArgs(def.Cmd)...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running hook", "cwd", dir)
	start := time.Now()
	err := cmd.Run()

	res := Result{
		RunID:    runID,
		Duration: time.Since(start),
		Stderr:   excerpt(stderr.String(), r.stderrExcerpt),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		switch {
		case ctx.Err() != nil:
			res.Error = ErrMsgCancelled
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.Error = ErrMsgTimeout
		default:
			res.Error = describeExit(err, res.ExitCode)
		}
		log.Warn("Hook execution failed", "error", res.Error, "exit_code", res.ExitCode, "duration", res.Duration)
		return res
	}

	out := ParseOutput(stdout.String())
	res.OK = out.OK
	res.Items = out.Items
	res.Error = out.Error

	if res.OK {
		log.Info("Hook completed", "items", len(res.Items), "duration", res.Duration)
	} else {
		log.Warn("Hook reported failure", "error", res.Error, "duration", res.Duration)
	}
	return res
}

func describeExit(err error, code int) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("Hook exited with code %d", code)
	}
	return fmt.Sprintf("Hook failed to start: %v", err)
}

// programName is the base name of the first word of a command line.
func programName(cmdline string) string {
	parts, err := shlex.Split(cmdline)
	if err != nil || len(parts) == 0 {
		return ""
	}
	return filepath.Base(parts[0])
}

// excerpt keeps the first limit characters of s.
func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
