// Package devserver is a development backend that serves the thread REST
// contract from plain files, with a mock archive suggester.
package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"threadterm/internal/backend"
)

type Server struct {
	router    *gin.Engine
	broker    *FileBroker
	suggester Suggester
	logger    zerolog.Logger
}

// NewServer mounts the thread routes under prefix, e.g. "/api".
func NewServer(broker *FileBroker, suggester Suggester, prefix string, logger zerolog.Logger) *Server {
	r := gin.New()
	s := &Server{router: r, broker: broker, suggester: suggester, logger: logger}
	r.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes(prefix)
	return s
}

func (s *Server) Engine() *gin.Engine { return s.router }

func (s *Server) registerRoutes(prefix string) {
	api := s.router.Group(prefix)

	threads := api.Group("/threads/:thread")
	threads.GET("/messages", s.listMessages)
	threads.POST("/messages", s.persistMessages)
	threads.GET("/messages/:order", s.getMessage)
	threads.GET("/instructions/archiving", s.getArchivingInstruction)
	threads.GET("/archives/suggest", s.suggestArchiving)
	threads.POST("/archives", s.commitArchive)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("request_id", c.GetHeader(backend.HeaderRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
