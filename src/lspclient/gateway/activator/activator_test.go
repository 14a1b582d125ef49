package activator

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/factory"
	"github.com/uber/lsp-client/src/lspclient/internal/executor"
	"github.com/uber/lsp-client/src/lspclient/internal/executor/executormock"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFactory(exec executor.Executor) Factory {
	return New(Params{Executor: exec, Logger: zap.NewNop().Sugar()})
}

func TestFactoryNew(t *testing.T) {
	f := newFactory(executor.NewExecutor())

	tests := []struct {
		name    string
		client  entity.Client
		wantErr string
	}{
		{name: "default stdio", client: entity.Client{Name: "a", Command: "a-ls"}},
		{name: "stdio without command", client: entity.Client{Name: "a", Transport: entity.TransportStdio}, wantErr: "requires a command"},
		{name: "tcp", client: entity.Client{Name: "a", Transport: entity.TransportTCP, Address: "127.0.0.1:1"}},
		{name: "unix without address", client: entity.Client{Name: "a", Transport: entity.TransportUnix}, wantErr: "requires an address"},
		{name: "websocket without address", client: entity.Client{Name: "a", Transport: entity.TransportWebSocket}, wantErr: "requires an address"},
		{name: "unknown", client: entity.Client{Name: "a", Transport: "carrier-pigeon"}, wantErr: "unknown transport"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			a, err := f.New(tt.client, "")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, a)
		})
	}
}

func roundTrip(t *testing.T, rwc io.ReadWriteCloser) {
	_, err := rwc.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(rwc, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestStdio(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("no cat available")
	}

	dir := t.TempDir()
	a, err := newFactory(executor.NewExecutor()).New(entity.Client{Name: "cat", Command: "cat"}, dir)
	require.NoError(t, err)

	rwc, err := a.Activate(context.Background())
	require.NoError(t, err)
	roundTrip(t, rwc)

	assert.NoError(t, rwc.Close())
	assert.NoError(t, rwc.Close())
	assert.Equal(t, dir, rwc.(*processStream).cmd.Dir)
}

func TestStdioOutputAfterExit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}

	dir := t.TempDir()
	done := filepath.Join(dir, "done")
	a, err := newFactory(executor.NewExecutor()).New(entity.Client{
		Name:    "sh",
		Command: "sh",
		Args:    []string{"-c", "printf 'last words'; printf 'oops' >&2; touch done"},
	}, dir)
	require.NoError(t, err)

	rwc, err := a.Activate(context.Background())
	require.NoError(t, err)

	// The process is done writing before anything is read.
	require.Eventually(t, func() bool {
		_, err := os.Stat(done)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	out, err := io.ReadAll(rwc)
	require.NoError(t, err)
	assert.Equal(t, "last words", string(out))
	assert.NoError(t, rwc.Close())
}

func TestStdioStartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	execMock := executormock.NewMockExecutor(ctrl)
	execMock.EXPECT().Start(gomock.Any(), gomock.Any()).Return(errors.New("no such binary"))

	a, err := newFactory(execMock).New(factory.Client("missing"), "")
	require.NoError(t, err)

	_, err = a.Activate(context.Background())
	assert.ErrorContains(t, err, "no such binary")
	assert.ErrorContains(t, err, "missing-language-server")
}

func TestStdioCanceled(t *testing.T) {
	a, err := newFactory(executor.NewExecutor()).New(factory.Client("any"), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Activate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func echoListener(t *testing.T, ln net.Listener) {
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(conn, conn)
	}()
}

func TestSocket(t *testing.T) {
	tests := []struct {
		name    string
		network string
		address func(t *testing.T) string
	}{
		{name: "tcp", network: entity.TransportTCP, address: func(t *testing.T) string { return "127.0.0.1:0" }},
		{name: "unix", network: entity.TransportUnix, address: func(t *testing.T) string { return filepath.Join(t.TempDir(), "ls.sock") }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ln, err := net.Listen(tt.network, tt.address(t))
			require.NoError(t, err)
			defer ln.Close()
			echoListener(t, ln)

			a, err := newFactory(executor.NewExecutor()).New(entity.Client{
				Name:      "socket",
				Transport: tt.network,
				Address:   ln.Addr().String(),
			}, "")
			require.NoError(t, err)

			rwc, err := a.Activate(context.Background())
			require.NoError(t, err)
			roundTrip(t, rwc)
			assert.NoError(t, rwc.Close())
		})
	}
}

func TestSocketRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := ln.Addr().String()
	require.NoError(t, ln.Close())

	a, err := newFactory(executor.NewExecutor()).New(entity.Client{Name: "tcp", Transport: entity.TransportTCP, Address: address}, "")
	require.NoError(t, err)
	_, err = a.Activate(context.Background())
	assert.Error(t, err)
}

func TestWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	a, err := newFactory(executor.NewExecutor()).New(entity.Client{
		Name:      "ws",
		Transport: entity.TransportWebSocket,
		Address:   "ws" + strings.TrimPrefix(server.URL, "http"),
	}, "")
	require.NoError(t, err)

	rwc, err := a.Activate(context.Background())
	require.NoError(t, err)
	assert.True(t, rwc.(rawFramer).RawFraming())

	roundTrip(t, rwc)

	// Frames are concatenated on read.
	_, err = rwc.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = rwc.Write([]byte("cd"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(rwc, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf))

	assert.NoError(t, rwc.Close())
}

type rawFramer interface {
	RawFraming() bool
}

func TestFunc(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	a := Func(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return client, nil
	})
	rwc, err := a.Activate(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, rwc)
	require.NoError(t, rwc.Close())
}
