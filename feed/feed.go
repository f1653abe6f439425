// Package feed maintains the public market-data websocket: subscribing to
// ticker and kline topics, delivering frames to the handler one at a time,
// and reconnecting with exponential backoff when the stream drops. Handler
// state such as candle buffers lives outside the feed, so a reconnect loses
// nothing but the frames that never arrived.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/perps/market"
)

const (
	DefaultURL = "wss://stream.bybit.com/v5/public/linear"

	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 20 * time.Second
	reconnectMin     = 1 * time.Second
	reconnectMax     = 30 * time.Second
)

// Handler consumes feed events. All three methods are called from the
// supervisor's goroutine, never concurrently.
type Handler interface {
	HandleTicker(ctx context.Context, symbol string, price float64) error
	HandleKline(ctx context.Context, symbol string, c market.Candle) error
	Housekeeping(ctx context.Context)
}

// Config holds the supervisor's connection settings.
type Config struct {
	URL      string
	Symbols  []string
	Interval string // kline interval in minutes, e.g. "60"
}

// Supervisor runs the connect/read/reconnect loop.
type Supervisor struct {
	cfg     Config
	handler Handler
	log     *logrus.Logger
}

func NewSupervisor(cfg Config, h Handler, log *logrus.Logger) *Supervisor {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "60"
	}
	return &Supervisor{cfg: cfg, handler: h, log: log}
}

// Run blocks until ctx is cancelled, reconnecting with exponential backoff
// whenever the connection fails.
func (s *Supervisor) Run(ctx context.Context) error {
	delay := reconnectMin

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			delay = reconnectMin
			continue
		}

		s.log.WithFields(logrus.Fields{
			"error": err,
			"delay": delay,
		}).Warn("feed disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > reconnectMax {
			delay = reconnectMax
		}
	}
}

func (s *Supervisor) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return err
	}
	s.log.WithField("symbols", strings.Join(s.cfg.Symbols, ",")).Info("feed connected")

	return s.readLoop(ctx, conn)
}

func (s *Supervisor) subscribe(conn *websocket.Conn) error {
	args := make([]string, 0, 2*len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		args = append(args, "tickers."+sym)
	}
	for _, sym := range s.cfg.Symbols {
		args = append(args, fmt.Sprintf("kline.%s.%s", s.cfg.Interval, sym))
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Supervisor) readLoop(ctx context.Context, conn *websocket.Conn) error {
	messages := make(chan []byte, 100)
	readErr := make(chan error, 1)

	go func() {
		defer close(messages)
		for {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				select {
				case readErr <- err:
				default:
				}
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("read: %w", err)

		case msg, ok := <-messages:
			if !ok {
				// Reader is gone; surface its error rather than spinning
				// on the closed channel.
				select {
				case err := <-readErr:
					return fmt.Errorf("read: %w", err)
				default:
					return nil
				}
			}
			if err := s.dispatch(ctx, msg); err != nil {
				s.log.Debugf("frame dropped: %v", err)
			}
			s.handler.Housekeeping(ctx)

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(map[string]any{"op": "ping"}); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// dispatch routes a single raw frame to the handler. Control frames and
// unknown topics are ignored.
func (s *Supervisor) dispatch(ctx context.Context, raw []byte) error {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	if f.Op != "" || f.Topic == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(f.Topic, "tickers."):
		sym, price, ok, err := parseTicker(f.Data)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if sym == "" {
			sym = topicSymbol(f.Topic)
		}
		return s.handler.HandleTicker(ctx, sym, price)

	case strings.HasPrefix(f.Topic, "kline."):
		sym := topicSymbol(f.Topic)
		candles, err := parseKlines(f.Data)
		if err != nil {
			return err
		}
		for _, c := range candles {
			if err := s.handler.HandleKline(ctx, sym, c); err != nil {
				return err
			}
		}
	}
	return nil
}
