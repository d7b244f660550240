package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Errors use the {"detail": "..."} body the client parses.

func detail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

func unprocessable(c *gin.Context, message string) {
	detail(c, http.StatusUnprocessableEntity, message)
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		unprocessable(c, err.Error())
	case errors.Is(err, ErrConflict):
		detail(c, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
		detail(c, http.StatusInternalServerError, "internal server error")
	}
}
