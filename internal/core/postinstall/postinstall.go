// Package postinstall runs the dependency installation script inside a
// freshly installed project.
package postinstall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrDependenciesNotInstalled matches every failure of Runner.Run.
var ErrDependenciesNotInstalled = errors.New("dependencies not installed")

// ScriptError reports a script that ran but did not succeed.
type ScriptError struct {
	ExitCode int // -1 when the script never produced an exit status
	Err      error
}

func (e *ScriptError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s: install script exited with status %d", ErrDependenciesNotInstalled, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", ErrDependenciesNotInstalled, e.Err)
}

func (e *ScriptError) Is(target error) bool {
	return target == ErrDependenciesNotInstalled
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Runner executes a POSIX shell script with an embedded interpreter, so the
// installer does not depend on a system shell.
type Runner struct {
	Script string
	Stdout io.Writer
	Stderr io.Writer
	// Env is the script environment; nil means the current process environment.
	Env []string
}

// Run parses and runs the script with dir as working directory, relaying
// its output. Any failure is a *ScriptError.
func (r *Runner) Run(ctx context.Context, dir string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(r.Script), "install")
	if err != nil {
		return &ScriptError{ExitCode: -1, Err: fmt.Errorf("failed to parse install script: %w", err)}
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return &ScriptError{ExitCode: -1, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ScriptError{ExitCode: int(status), Err: err}
		}
		return &ScriptError{ExitCode: -1, Err: fmt.Errorf("install script failed: %w", err)}
	}
	return nil
}
