package control

import (
	"context"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
)

// wsChannel adapts a coder/websocket.Conn to the jrpc2 channel.Channel
// interface, ported near-verbatim from the teacher's internal/server/
// rpc_ws.go: one wsChannel per connection bridges Send/Recv/Close between
// the WebSocket transport and a jrpc2 server.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// ServeWS upgrades r to a WebSocket connection and serves the same method
// table as ServeHTTP's JSON-RPC bridge, but over a persistent duplex
// channel instead of one request per call. Token auth happens before the
// upgrade so an unauthenticated caller never reaches the WebSocket
// handshake.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !validToken(s.secret, r.Header.Get("Authorization")) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx := r.Context()
	ch := &wsChannel{conn: conn, ctx: ctx}

	srv := jrpc2.NewServer(s.methods, nil)
	srv.Start(ch)
	_ = srv.Wait()
}
