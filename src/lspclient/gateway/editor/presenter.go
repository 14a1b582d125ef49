package editor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
)

type terminalPresenter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPresenter returns a Presenter that prints to out and reads numbered answers from in.
func NewTerminalPresenter(in io.Reader, out io.Writer) Presenter {
	return &terminalPresenter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPresenter) Show(ctx context.Context, typ protocol.MessageType, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := fmt.Fprintf(p.out, "[%s] %s\n", typ, message)
	return err
}

func (p *terminalPresenter) Choose(ctx context.Context, typ protocol.MessageType, message string, options []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.out, "[%s] %s\n", typ, message); err != nil {
		return -1, err
	}
	for i, option := range options {
		if _, err := fmt.Fprintf(p.out, "  %d) %s\n", i+1, option); err != nil {
			return -1, err
		}
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return -1, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(options) {
		return -1, nil
	}
	return n - 1, nil
}
