package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
)

// Server hosts the survey HTTP surface and lifecycle.
type Server struct {
	httpServer *http.Server
}

// NewServer binds handler to addr.
func NewServer(addr string, handler http.Handler) (*Server, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	return &Server{httpServer: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}}, nil
}

// ListenAndServe serves HTTP traffic until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("survey server is nil")
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("survey http listening addr=%s", s.httpServer.Addr)
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown survey http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve survey http: %w", err)
	}
}

// Handler returns the root handler, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
