package activator

import (
	"context"
	"io"
	"net"
)

type socketActivator struct {
	network string
	address string
}

func (a *socketActivator) Activate(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, a.network, a.address)
}
