package jsonrpcfx

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

func TestParseCancelID(t *testing.T) {
	tests := []struct {
		name    string
		params  string
		want    jsonrpc2.ID
		wantErr bool
	}{
		{name: "number", params: `{"id": 7}`, want: jsonrpc2.NewNumberID(7)},
		{name: "string", params: `{"id": "abc"}`, want: jsonrpc2.NewStringID("abc")},
		{name: "fraction", params: `{"id": 1.5}`, wantErr: true},
		{name: "missing", params: `{}`, wantErr: true},
		{name: "object", params: `{"id": {}}`, wantErr: true},
		{name: "not json", params: `[`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCancelID(json.RawMessage(tt.params))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandlersCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientSide, serverSide := net.Pipe()
	started := make(chan struct{})
	canceled := make(chan struct{})

	server := jsonrpc2.NewConn(jsonrpc2.NewStream(serverSide))
	server.Go(ctx, Handlers(func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return reply(ctx, nil, ctx.Err())
	}))

	client := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	client.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	callCtx, cancelCall := context.WithCancel(ctx)
	errs := make(chan error, 1)
	go func() {
		errs <- protocol.Call(callCtx, client, "slow", nil, nil)
	}()

	<-started
	cancelCall()

	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler was not canceled")
	}
	assert.ErrorIs(t, <-errs, context.Canceled)

	require.NoError(t, client.Close())
	<-client.Done()
	<-server.Done()
}
