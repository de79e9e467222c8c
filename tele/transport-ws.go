package tele

import (
	"context"
	"sync"

	"github.com/beagley/hubclient/log2"
	tele_config "github.com/beagley/hubclient/tele/config"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
)

type wsDialer struct {
	d         *websocket.Dialer
	log       *log2.Log
	readLimit int64
}

// NewWebsocketDialer uses gorilla/websocket. Zero ConnectTimeoutMs keeps
// websocket.DefaultDialer handshake timeout.
func NewWebsocketDialer(log *log2.Log, teleConfig tele_config.Config) Dialer {
	d := *websocket.DefaultDialer
	if timeout := teleConfig.ConnectTimeout(); timeout != 0 {
		d.HandshakeTimeout = timeout
	}
	return &wsDialer{
		d:         &d,
		log:       log,
		readLimit: teleConfig.MaxMessageSize(),
	}
}

func (self *wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, resp, err := self.d.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Annotatef(err, "ws dial url=%s status=%s", url, resp.Status)
		}
		return nil, errors.Annotatef(err, "ws dial url=%s", url)
	}
	c.SetReadLimit(self.readLimit)
	self.log.Debugf("ws connected local=%s remote=%s", c.LocalAddr(), c.RemoteAddr())
	return &wsConn{c: c, log: self.log}, nil
}

type wsConn struct {
	c    *websocket.Conn
	log  *log2.Log
	once sync.Once
	err  error
}

func (self *wsConn) Receive() ([]byte, error) {
	for {
		mt, b, err := self.c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, errors.Annotate(err, "ws closed by hub")
			}
			return nil, errors.Annotate(err, "ws receive")
		}
		if mt != websocket.TextMessage {
			self.log.Debugf("ws skip message type=%d len=%d", mt, len(b))
			continue
		}
		return b, nil
	}
}

// Close does not send close frame: transport is receive only and close is
// either shutdown or link failure.
func (self *wsConn) Close() error {
	self.once.Do(func() { self.err = self.c.Close() })
	return self.err
}
