package activator

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const _closeWriteWait = time.Second

type websocketActivator struct {
	address string
}

func (a *websocketActivator) Activate(ctx context.Context) (io.ReadWriteCloser, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.address, nil)
	if err != nil {
		return nil, err
	}
	return &websocketStream{conn: conn}, nil
}

// websocketStream carries one JSON-RPC message per text frame.
type websocketStream struct {
	conn *websocket.Conn

	readMu sync.Mutex
	reader io.Reader

	writeMu sync.Mutex
}

// RawFraming reports that messages are not wrapped in Content-Length headers.
func (s *websocketStream) RawFraming() bool { return true }

func (s *websocketStream) Read(b []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.reader = r
		}

		n, err := s.reader.Read(b)
		if err == io.EOF {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *websocketStream) Write(b []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (s *websocketStream) Close() error {
	s.writeMu.Lock()
	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(_closeWriteWait),
	)
	s.writeMu.Unlock()

	if err == websocket.ErrCloseSent {
		err = nil
	}
	return multierr.Append(err, s.conn.Close())
}
