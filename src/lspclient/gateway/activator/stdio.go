package activator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/executor"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// _exitGrace is how long a server may take to exit after its stdin closes before it is killed.
const _exitGrace = 2 * time.Second

type stdioActivator struct {
	client   entity.Client
	dir      string
	executor executor.Executor
	logger   *zap.SugaredLogger
}

func (a *stdioActivator) Activate(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The process outlives ctx, so it is not bound to it.
	cmd := exec.Command(a.client.Command, a.client.Args...)
	cmd.Dir = a.dir

	// The process writes into pipes owned here, so Wait drains its output before the readers see EOF.
	stdout, stdoutW := io.Pipe()
	stderr, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("stdin pipe: %w", err), stdout.Close(), stderr.Close())
	}

	if err := a.executor.Start(cmd, append(os.Environ(), a.client.Env...)); err != nil {
		return nil, multierr.Combine(fmt.Errorf("start %q: %w", a.client.Command, err), stdin.Close(), stdout.Close(), stderr.Close())
	}

	p := &processStream{
		WriteCloser: stdin,
		stdout:      stdout,
		cmd:         cmd,
		exited:      make(chan struct{}),
	}

	go a.logStderr(stderr)
	go func() {
		defer close(p.exited)
		_, p.exitErr = a.executor.Wait(cmd)
		_ = stdoutW.Close()
		_ = stderrW.Close()
	}()

	return p, nil
}

func (a *stdioActivator) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		a.logger.Debugw("language server stderr", "line", scanner.Text())
	}
}

// processStream speaks to a child process over its stdin and stdout.
type processStream struct {
	io.WriteCloser
	stdout io.ReadCloser
	cmd    *exec.Cmd

	closeOnce sync.Once
	closeErr  error
	exited    chan struct{}
	exitErr   error
}

func (p *processStream) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close closes stdin and waits for the process to exit, killing it once the grace period elapses.
func (p *processStream) Close() error {
	p.closeOnce.Do(func() {
		// Unread output is discarded so the process is never blocked writing it.
		p.closeErr = multierr.Append(p.WriteCloser.Close(), p.stdout.Close())

		select {
		case <-p.exited:
		case <-time.After(_exitGrace):
			if p.cmd.Process != nil {
				p.closeErr = multierr.Append(p.closeErr, p.cmd.Process.Kill())
			}
			<-p.exited
		}
	})
	return p.closeErr
}
