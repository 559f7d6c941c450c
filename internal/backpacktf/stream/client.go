/**
 * @description
 * WebSocket client for the backpack.tf event stream. Maintains a durable
 * connection that delivers JSON arrays of listing events and feeds them
 * into the update queue.
 *
 * Key features:
 * - Reconnects forever: 1s backoff after a clean close, 60s after anything else.
 * - Keep-alive pings every 60s with a 120s pong deadline.
 * - Adaptive sleep after each frame (ceil(queue/batch) seconds) so the
 *   upstream TCP window throttles the producer instead of us dropping
 *   messages.
 *
 * @dependencies
 * - github.com/gorilla/websocket
 * - github.com/buger/jsonparser: frame splitting without full decode.
 */

package stream

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tf2-stack/listings-backend/internal/logger"
)

const (
	WriteWait  = 10 * time.Second
	PingPeriod = 60 * time.Second
	PongWait   = 120 * time.Second

	// Backoff before reconnecting, by error class.
	closeRetryDelay = 1 * time.Second
	errorRetryDelay = 60 * time.Second
)

// Client ingests the backpack.tf websocket event stream.
type Client struct {
	url   string
	appID int
	queue *Queue
}

// NewClient creates a stream client that appends events to queue.
func NewClient(url string, appID int, queue *Queue) *Client {
	return &Client{
		url:   url,
		appID: appID,
		queue: queue,
	}
}

// Run connects and reads until ctx is canceled, reconnecting on every
// failure. It never drops messages; when the queue backs up it stalls
// reads instead.
func (c *Client) Run(ctx context.Context) {
	for {
		delay := c.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}

		logger.Info("Reconnecting to the websocket server in %s...", delay)
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// runOnce dials, reads until the connection dies, and returns the backoff
// to apply before the next attempt.
func (c *Client) runOnce(ctx context.Context) time.Duration {
	headers := http.Header{}
	headers.Set("appid", strconv.Itoa(c.appID))
	headers.Set("batch-test", "true")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, headers)
	if err != nil {
		logger.Error("Failed to connect to websocket: %v", err)
		return errorRetryDelay
	}
	logger.Info("✅ Connected to the backpack.tf websocket server")
	defer conn.Close()

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	// No SetReadLimit: batched frames can run to many megabytes and must
	// never be truncated.
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return 0
			}
			if isConnectionClosed(err) {
				logger.Error("Websocket connection closed: %v", err)
				return closeRetryDelay
			}
			logger.Error("Websocket read error: %v", err)
			return errorRetryDelay
		}

		c.handleFrame(ctx, message)
	}
}

// handleFrame splits an array frame into individual events and applies the
// adaptive backpressure sleep.
func (c *Client) handleFrame(ctx context.Context, message []byte) {
	count := 0
	jsonparser.ArrayEach(message, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if err != nil {
			return
		}
		// value aliases the read buffer; copy before it is reused.
		raw := make(json.RawMessage, len(value))
		copy(raw, value)
		c.queue.Append(raw)
		count++
	})
	if count > 0 {
		logger.Info("Received %d messages", count)
	}

	if pause := backpressurePause(c.queue.Len()); pause > 0 {
		logger.Info("Queue at %d messages, pausing reads for %s", c.queue.Len(), pause)
		sleepCtx(ctx, pause)
	}
}

// backpressurePause converts the queue depth into the read stall applied
// after a frame: one second per full dispatcher batch still waiting.
func backpressurePause(queueLen int) time.Duration {
	return time.Duration(math.Ceil(float64(queueLen)/float64(DispatchBatchSize))) * time.Second
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isConnectionClosed reports whether the read failed because the peer went
// away, as opposed to a protocol or local error.
func isConnectionClosed(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

// sleepCtx sleeps for d unless ctx is canceled first. Returns false when
// the sleep was interrupted.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
