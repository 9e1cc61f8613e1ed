package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a gorilla connection to the session.Socket contract.
// Frame writes from the inbound task and the broadcast forwarder are
// serialized by a mutex; pings go through WriteControl, which gorilla
// allows concurrently with data writes.
type wsConn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(conn *websocket.Conn, pingInterval, readTimeout, writeTimeout time.Duration, logger *slog.Logger) *wsConn {
	c := &wsConn{
		conn:         conn,
		logger:       logger,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go c.pingLoop()
	return c
}

// ReadFrame returns the next binary frame. Non-binary data messages are
// skipped; the protocol is binary-only.
func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		if msgType == websocket.BinaryMessage {
			return payload, nil
		}
		c.logger.Debug("ignoring non-binary message", "type", msgType)
	}
}

// WriteFrame writes one binary frame. Safe for concurrent use.
func (c *wsConn) WriteFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Close sends a close frame and tears the connection down. Safe to call
// more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
