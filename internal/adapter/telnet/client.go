// Package telnet reads spot lines from a DX cluster node over telnet.
package telnet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

const (
	defaultReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second

	// maxLineLength bounds a line that never sees a newline.
	maxLineLength = 4096
)

// loginPrompts are the lowercase endings of the prompts cluster nodes print
// before asking for a callsign.
var loginPrompts = []string{"login:", "call:", "callsign:"}

// DialFunc opens the cluster connection. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds the cluster connection settings.
type Config struct {
	Addr           string
	Callsign       string
	DialTimeout    time.Duration
	FlushInterval  time.Duration // longest a partial batch waits for more lines
	ReconnectDelay time.Duration // first delay after a lost connection, doubled up to 30s
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the TCP dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithClock replaces the clock used for receive timestamps and timers.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// Client keeps a session with one cluster node open, logging in and
// reconnecting as needed, and hands out received lines in batches.
// It implements pipeline.BatchExtractor.
type Client struct {
	cfg    Config
	logger *slog.Logger
	clock  clockwork.Clock
	dial   DialFunc

	lines chan domain.RawLine
	done  chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
}

// NewClient creates a client for cfg. The connection is opened on the first
// ExtractBatch call.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		cfg:    cfg,
		logger: logger,
		clock:  clockwork.NewRealClock(),
		dial:   dialer.DialContext,
		lines:  make(chan domain.RawLine, 256),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source identifies this client in RawLine.Source.
func (c *Client) Source() string {
	return "telnet:" + c.cfg.Addr
}

// ExtractBatch blocks until at least one line arrives, then collects more
// until batchSize lines are held or the flush interval passes. After Close it
// returns the remaining lines with io.EOF.
func (c *Client) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawLine, error) {
	c.startOnce.Do(func() { go c.run() })

	var batch []domain.RawLine
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, line)
	}

	timer := c.clock.NewTimer(c.cfg.FlushInterval)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case <-ctx.Done():
			return batch, nil
		case <-timer.Chan():
			return batch, nil
		case line, ok := <-c.lines:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, line)
		}
	}
	return batch, nil
}

// Close ends the session and stops reconnecting.
func (c *Client) Close() error {
	c.cancel()
	c.startOnce.Do(func() {
		close(c.lines)
		close(c.done)
	})
	<-c.done
	return nil
}

// run dials, reads one session to its end and reconnects with backoff until
// the client is closed.
func (c *Client) run() {
	defer close(c.done)
	defer close(c.lines)

	delay := c.cfg.ReconnectDelay
	for {
		got, err := c.session()
		if c.ctx.Err() != nil {
			return
		}
		if got > 0 {
			delay = c.cfg.ReconnectDelay
		}
		c.logger.Warn("cluster connection lost, reconnecting",
			"addr", c.cfg.Addr, "error", err, "lines", got, "delay", delay)

		select {
		case <-c.ctx.Done():
			return
		case <-c.clock.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// session runs one connection and returns the number of lines it delivered.
func (c *Client) session() (int64, error) {
	dialCtx := c.ctx
	if c.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(c.ctx, c.cfg.DialTimeout)
		defer cancel()
	}
	conn, err := c.dial(dialCtx, "tcp", c.cfg.Addr)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", c.cfg.Addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(c.ctx, func() { conn.Close() })
	defer stop()

	id := uuid.NewString()
	c.logger.Info("cluster connected", "addr", c.cfg.Addr, "session", id)

	s := &lineSession{
		r:        bufio.NewReader(newDecoder(conn, conn)),
		w:        conn,
		callsign: c.cfg.Callsign,
	}
	var seq int64
	for {
		text, err := s.next()
		if err != nil {
			return seq, err
		}
		if s.justLoggedIn {
			c.logger.Info("cluster login sent", "callsign", c.cfg.Callsign, "session", id)
			s.justLoggedIn = false
		}
		if text == "" && !s.complete {
			continue
		}
		seq++
		line := domain.RawLine{
			Text:       text,
			Source:     c.Source(),
			Session:    id,
			Seq:        seq,
			ReceivedAt: c.clock.Now(),
		}
		select {
		case c.lines <- line:
		case <-c.ctx.Done():
			return seq, c.ctx.Err()
		}
	}
}

// lineSession splits the decoded stream into lines and answers the login
// prompt, which arrives without a trailing newline. The prompt itself is
// consumed and never surfaces as a line.
type lineSession struct {
	r        *bufio.Reader
	w        io.Writer
	callsign string
	buf      []byte

	loggedIn     bool
	justLoggedIn bool
	complete     bool // last line ended with a newline
}

// next returns the next line without its line ending. It also returns with
// an empty, incomplete line right after sending the callsign.
func (s *lineSession) next() (string, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if len(s.buf) > 0 && err == io.EOF {
				return s.flush(false), nil
			}
			return "", err
		}
		switch b {
		case '\n':
			return s.flush(true), nil
		case '\r', 0:
			continue
		}
		s.buf = append(s.buf, b)
		if len(s.buf) >= maxLineLength {
			return s.flush(false), nil
		}
		if !s.loggedIn && s.callsign != "" && isLoginPrompt(s.buf) {
			if _, err := io.WriteString(s.w, s.callsign+"\r\n"); err != nil {
				return "", fmt.Errorf("send login: %w", err)
			}
			s.buf = s.buf[:0]
			s.loggedIn = true
			s.justLoggedIn = true
			s.complete = false
			return "", nil
		}
	}
}

func (s *lineSession) flush(complete bool) string {
	text := string(s.buf)
	s.buf = s.buf[:0]
	s.complete = complete
	return text
}

func isLoginPrompt(buf []byte) bool {
	tail := strings.ToLower(strings.TrimRight(string(buf), " "))
	for _, p := range loginPrompts {
		if strings.HasSuffix(tail, p) {
			return true
		}
	}
	return false
}
