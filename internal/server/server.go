// Package server streams transmitted HID reports to TCP clients and takes
// LED output reports back from them.
//
// Every report is framed as one kind byte, one length byte and the report
// bytes. Each byte a client sends is an LED output report.
package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/keypipe/hid"
)

// Config controls per-client buffering and write timeouts.
type Config struct {
	// Backlog is the number of frames queued per client before the client
	// is dropped.
	Backlog      int
	WriteTimeout time.Duration
}

func defaultConfig() Config {
	return Config{Backlog: 64, WriteTimeout: 2 * time.Second}
}

type client struct {
	conn   net.Conn
	frames chan []byte
	logger *slog.Logger
}

// Server fans reports out to every connected client. It implements
// hid.Transport.
type Server struct {
	addr   string
	ln     net.Listener
	logger *slog.Logger
	config Config

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	leds    chan uint8
	wg      sync.WaitGroup
}

// New creates a server for addr. A nil cfg uses the defaults.
func New(addr string, cfg *Config, logger *slog.Logger) *Server {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
		if c.Backlog <= 0 {
			c.Backlog = defaultConfig().Backlog
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		logger:  logger,
		config:  c,
		clients: map[*client]struct{}{},
		leds:    make(chan uint8, 16),
	}
}

// Start listens on the configured address and serves clients.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("report stream listening", "addr", ln.Addr().String())
	s.wg.Add(1)
	go s.serve()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// LEDs delivers LED output reports sent by clients.
func (s *Server) LEDs() <-chan uint8 { return s.leds }

// Close stops listening and disconnects every client.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		s.dropLocked(c)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Transmit queues one framed report for every client. A client whose
// backlog is full is disconnected.
func (s *Server) Transmit(kind hid.ReportKind, data []byte) error {
	if len(data) > 255 {
		return errors.New("report too long for stream frame")
	}
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, byte(kind), byte(len(data)))
	frame = append(frame, data...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.frames <- frame:
		default:
			c.logger.Warn("report stream client too slow, dropping")
			s.dropLocked(c)
		}
	}
	return nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("report stream stopped")
				return
			}
			s.logger.Info("report stream accept error", "error", err)
			return
		}
		c := &client{
			conn:   conn,
			frames: make(chan []byte, s.config.Backlog),
			logger: s.logger.With("remote", conn.RemoteAddr().String()),
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.clients[c] = struct{}{}
		s.wg.Add(2)
		s.mu.Unlock()
		c.logger.Info("report stream client connected")

		go s.writeLoop(c)
		go s.readLoop(c)
	}
}

// dropLocked closes c once. s.mu must be held.
func (s *Server) dropLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.frames)
	_ = c.conn.Close()
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	s.dropLocked(c)
	s.mu.Unlock()
}

func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	for frame := range c.frames {
		if s.config.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if _, err := c.conn.Write(frame); err != nil {
			c.logger.Debug("report stream write failed", "error", err)
			s.drop(c)
			for range c.frames {
			}
			return
		}
	}
}

func (s *Server) readLoop(c *client) {
	defer s.wg.Done()
	defer s.drop(c)

	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(c.conn, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.logger.Info("report stream client disconnected")
				return
			}
			c.logger.Debug("report stream read failed", "error", err)
			return
		}
		select {
		case s.leds <- buf[0]:
		default:
			c.logger.Warn("led report dropped, consumer not keeping up")
		}
	}
}
