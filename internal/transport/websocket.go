package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// Dial returns a DialFunc that connects to rawURL and speaks one JSON frame
// per websocket text message. http/https schemes are rewritten to ws/wss.
func Dial(rawURL string) (DialFunc, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http", "https":
		u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	default:
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	target := u.String()

	return func(ctx context.Context) (MessageStream, error) {
		dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, target, nil)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", target, err)
		}
		return &wsStream{conn: conn}, nil
	}, nil
}

// NewWebsocketStream wraps an established websocket connection. Exposed for
// test servers that upgrade with the same library.
func NewWebsocketStream(conn *websocket.Conn) MessageStream {
	return &wsStream{conn: conn}
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Send(ctx context.Context, frame []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

func (s *wsStream) Receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		defer s.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("transport: read frame: %w", err)
	}
	return data, nil
}

func (s *wsStream) Close() error {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return s.conn.Close()
}
