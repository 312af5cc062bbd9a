// Package pricefeed subscribes to an external websocket price stream and
// lands each tick in the price table, so the compliance engine always values
// against the latest close without polling.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/fundguard/fundguard/internal/events"
	"github.com/fundguard/fundguard/internal/modules/universe"
)

const (
	dialTimeout = 30 * time.Second

	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 5 * time.Minute

	feedStaleThreshold = 5 * time.Minute
)

// tick is one price observation on the wire.
type tick struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	PriceDate string  `json:"price_date"`
}

// PriceSink persists observed ticks.
type PriceSink interface {
	Upsert(price universe.PricePoint) error
}

// Client maintains the feed connection, reconnecting with exponential
// backoff when it drops.
type Client struct {
	url          string
	prices       PriceSink
	eventManager *events.Manager
	log          zerolog.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	connected  bool
	stopped    bool

	reconnecting bool
	stopChan     chan struct{}

	tickMu   sync.RWMutex
	lastTick time.Time
}

// NewClient creates a new price feed client
func NewClient(url string, prices PriceSink, eventManager *events.Manager, log zerolog.Logger) *Client {
	return &Client{
		url:          url,
		prices:       prices,
		eventManager: eventManager,
		log:          log.With().Str("component", "price_feed").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start connects and begins consuming ticks. A failed initial dial is not
// fatal; the reconnect loop keeps trying in the background.
func (c *Client) Start() error {
	c.log.Info().Str("url", c.url).Msg("Starting price feed client")

	if err := c.connect(); err != nil {
		c.log.Warn().Err(err).Msg("Initial price feed connection failed, will retry in background")
		go c.reconnectLoop()
		return err
	}

	c.mu.RLock()
	ctx := c.connCtx
	c.mu.RUnlock()
	go c.readLoop(ctx)
	return nil
}

// Stop shuts the client down and closes the connection.
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stopChan)
	return c.disconnect()
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// IsStale reports whether no tick has arrived within the staleness window.
func (c *Client) IsStale() bool {
	c.tickMu.RLock()
	defer c.tickMu.RUnlock()
	return c.lastTick.IsZero() || time.Since(c.lastTick) > feedStaleThreshold
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial price feed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connCtx = connCtx
	c.cancelFunc = connCancel
	c.connected = true

	c.log.Info().Msg("Price feed connected")
	return nil
}

func (c *Client) disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}

	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	c.connCtx = nil
	c.connected = false
	if err != nil {
		return fmt.Errorf("error closing price feed: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		stopped := c.stopped
		c.mu.Unlock()
		if !stopped {
			go c.reconnectLoop()
		}
	}()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				c.log.Info().Msg("Price feed closed normally")
			} else if ctx.Err() == nil {
				c.log.Error().Err(err).Msg("Price feed read error")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		if err := c.handleTick(message); err != nil {
			// One bad tick must not stall the stream.
			c.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle price tick")
		}
	}
}

func (c *Client) handleTick(message []byte) error {
	var t tick
	if err := json.Unmarshal(message, &t); err != nil {
		return fmt.Errorf("failed to parse tick: %w", err)
	}

	point := universe.PricePoint{
		Ticker:    universe.CanonicalTicker(t.Ticker),
		PriceDate: t.PriceDate,
		Price:     t.Price,
	}
	if err := point.Validate(); err != nil {
		return fmt.Errorf("invalid tick: %w", err)
	}
	if err := c.prices.Upsert(point); err != nil {
		return err
	}

	c.tickMu.Lock()
	c.lastTick = time.Now()
	c.tickMu.Unlock()

	if c.eventManager != nil {
		c.eventManager.EmitTyped("price_feed", &events.PriceUpdatedData{
			Ticker:    point.Ticker,
			Price:     point.Price,
			PriceDate: point.PriceDate,
		})
	}

	c.log.Debug().
		Str("ticker", point.Ticker).
		Float64("price", point.Price).
		Str("price_date", point.PriceDate).
		Msg("Price tick applied")
	return nil
}

func (c *Client) reconnectLoop() {
	c.mu.Lock()
	if c.reconnecting || c.stopped {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		attempt++
		delay := backoff(attempt)
		c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting to price feed")

		select {
		case <-time.After(delay):
		case <-c.stopChan:
			return
		}

		if err := c.connect(); err != nil {
			c.log.Error().Err(err).Int("attempt", attempt).Msg("Price feed reconnection failed")
			continue
		}

		c.mu.RLock()
		ctx := c.connCtx
		c.mu.RUnlock()
		go c.readLoop(ctx)
		return
	}
}

func backoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}
