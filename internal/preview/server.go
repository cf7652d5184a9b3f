// Package preview serves Prometheus metrics and a live view of the LED strip.
package preview

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"helmet-signal/internal/led"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/types"
)

const (
	frameInterval = 50 * time.Millisecond
	writeWait     = 2 * time.Second
)

// Source provides the frame currently on the strip.
type Source interface {
	Snapshot() ([]led.RGB, types.Signal)
}

// Frame is the JSON message sent to preview clients.
type Frame struct {
	Pixels []string `json:"pixels"`
	Signal string   `json:"signal"`
}

func newFrame(pixels []led.RGB, sig types.Signal) Frame {
	f := Frame{Pixels: make([]string, len(pixels)), Signal: sig.String()}
	for i, p := range pixels {
		f.Pixels[i] = p.String()
	}
	return f
}

func (f Frame) equal(o Frame) bool {
	return f.Signal == o.Signal && slices.Equal(f.Pixels, o.Pixels)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter builds the HTTP routes. /preview is only mounted when src is
// non-nil.
func NewRouter(src Source, l *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	if src != nil {
		r.Get("/preview", previewHandler(src, l))
	}
	return r
}

func previewHandler(src Source, l *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Warnf("Websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		l.Debugf("Preview client %s connected", r.RemoteAddr)

		// reads are only needed to notice the client going away
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		var last Frame
		sent := false
		for {
			pixels, sig := src.Snapshot()
			f := newFrame(pixels, sig)
			if !sent || !f.equal(last) {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(f); err != nil {
					l.Debugf("Preview client %s: %v", r.RemoteAddr, err)
					return
				}
				last, sent = f, true
			}

			select {
			case <-gone:
				l.Debugf("Preview client %s disconnected", r.RemoteAddr)
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// Server runs the router on a TCP listener.
type Server struct {
	logger *logger.Logger
	srv    *http.Server
}

func NewServer(addr string, src Source, l *logger.Logger) *Server {
	l = l.WithTag("http")
	return &Server{
		logger: l,
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(src, l),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Infof("Listening on %s", ln.Addr())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
