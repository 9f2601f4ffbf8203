package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/w-h-a/knowledge/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type httpServer struct {
	options server.Options
	handler http.Handler
}

// Run serves until the context is cancelled, then drains in-flight requests
// before returning.
func (s *httpServer) Run(ctx context.Context) error {
	handler := s.handler

	if ms, ok := MiddlewareFrom(s.options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	srv := &http.Server{
		Addr:              s.options.Address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.InfoContext(ctx, "http server listening", "address", s.options.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func NewServer(handler http.Handler, opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	if handler == nil {
		panic("handler is required")
	}

	return &httpServer{
		options: options,
		handler: handler,
	}
}
