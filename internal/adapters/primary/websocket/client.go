package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrClientClosed is returned by Send once the client has been closed.
	ErrClientClosed = errors.New("websocket client closed")

	// ErrSendBufferFull is returned by Send when the client is not draining
	// its queue fast enough.
	ErrSendBufferFull = errors.New("websocket client send buffer full")
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	conn     *websocket.Conn
	ticketID int64
	userID   int64
	cfg      HubConfig

	// Buffered channel of outbound frames. Never closed; done signals the end.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
	closeCode int
	closeText string

	// stopped is closed when the write pump returns.
	stopped chan struct{}

	logger *slog.Logger
}

var _ Subscriber = (*Client)(nil)

func newClient(conn *websocket.Conn, ticketID, userID int64, cfg HubConfig, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		ticketID: ticketID,
		userID:   userID,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
	}
}

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close asks the write pump to say goodbye and drop the connection.
func (c *Client) Close() {
	c.closeWith(websocket.CloseGoingAway, "server closing connection")
}

func (c *Client) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

// writeFrame writes one text frame directly. Only safe before the write
// pump starts.
func (c *Client) writeFrame(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// readPump consumes control frames until the peer goes away. Data frames
// from the peer carry no meaning and are discarded.
func (c *Client) readPump() {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

// writePump drains the send queue onto the connection and keeps it alive
// with pings. It owns the connection's writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.writeFrame(frame); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}

		case <-c.done:
			c.writeClose(c.closeCode, c.closeText)
			return
		}
	}
}

func (c *Client) writeClose(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.logger.Debug("failed to send close message", "error", err)
	}
}
