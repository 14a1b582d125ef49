package executor

import (
	"os/exec"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(func(logger *zap.SugaredLogger) Executor {
		return NewExecutor(WithLogger(logger))
	}),
)

// Executor wraps the execution of "os/exec".Cmd's to allow adding logs to each
// language server launch and makes it easier to test.
type Executor interface {
	// Start logs and starts the Cmd specified without waiting for it to exit.
	Start(cmd *exec.Cmd, env []string) error
	// Wait waits for a started Cmd and returns its exit code.
	Wait(cmd *exec.Cmd) (exitCode int, err error)
}

// executorImp implements Executor
type executorImp struct {
	Logger *zap.SugaredLogger
	// StartFunc may be nil to use executorImp in tests.
	StartFunc func(e *exec.Cmd) error
	WaitFunc  func(e *exec.Cmd) error
}

// Option defines options to customize executorImp's behavior
type Option func(*executorImp)

// WithLogger overrides the default noop logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *executorImp) {
		executor.Logger = logger
	}
}

// WithStartFunc provides customized start behavior for executorImp
func WithStartFunc(startFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.StartFunc = startFunc
	}
}

// WithWaitFunc provides customized wait behavior for executorImp
func WithWaitFunc(waitFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.WaitFunc = waitFunc
	}
}

// NewExecutor creates a new executorImp with a noop logger and the default start and wait functions.
func NewExecutor(opts ...Option) Executor {
	executor := &executorImp{
		Logger:    zap.NewNop().Sugar(),
		StartFunc: func(cmd *exec.Cmd) error { return cmd.Start() },
		WaitFunc:  func(cmd *exec.Cmd) error { return cmd.Wait() },
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Start logs the Path/Args and calls StartFunc if it is set.
func (l *executorImp) Start(cmd *exec.Cmd, env []string) error {
	l.logCommand(cmd)

	if l.StartFunc == nil {
		l.Logger.Warn("missing StartFunc - skipped execution")
		return nil
	}

	if env != nil {
		cmd.Env = env
	}
	return l.StartFunc(cmd)
}

// Wait calls WaitFunc if it is set and reports the exit code of the process.
func (l *executorImp) Wait(cmd *exec.Cmd) (int, error) {
	if l.WaitFunc == nil {
		return 0, nil
	}

	err := l.WaitFunc(cmd)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	l.Logger.Infow("Exited", "Path", cmd.Path, "ExitCode", exitCode)
	return exitCode, err
}

// Logs the command specified: Path, Dir, Args
func (l *executorImp) logCommand(cmd *exec.Cmd) {
	var args []string
	if len(cmd.Args) > 1 {
		// First arg is always the command itself
		args = cmd.Args[1:]
	}
	l.Logger.Infow("Exec",
		"Path", cmd.Path,
		"Dir", cmd.Dir,
		"Args", args,
	)
}
