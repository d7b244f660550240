package devserver

import (
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"threadterm/internal/model"
)

func (s *Server) listMessages(c *gin.Context) {
	msgs, err := s.broker.Messages(c.Param("thread"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.EncodeMessages(msgs))
}

func (s *Server) getMessage(c *gin.Context) {
	order, err := strconv.Atoi(c.Param("order"))
	if err != nil {
		unprocessable(c, "message order must be an integer")
		return
	}
	m, err := s.broker.Message(c.Param("thread"), order)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.EncodeMessage(m))
}

func (s *Server) getArchivingInstruction(c *gin.Context) {
	m, err := s.broker.ArchivingInstruction(c.Param("thread"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.EncodeMessage(m))
}

func (s *Server) suggestArchiving(c *gin.Context) {
	thread := c.Param("thread")

	raw := c.QueryArray("messages_orders")
	if len(raw) == 0 {
		unprocessable(c, "messages_orders is required")
		return
	}
	orders := make([]int, 0, len(raw))
	for _, v := range raw {
		o, err := strconv.Atoi(v)
		if err != nil {
			unprocessable(c, "messages_orders must be integers")
			return
		}
		orders = append(orders, o)
	}
	slices.Sort(orders)
	orders = slices.Compact(orders)

	all, err := s.broker.Messages(thread)
	if err != nil {
		s.fail(c, err)
		return
	}
	targets, err := s.broker.MessagesByOrders(thread, orders)
	if err != nil {
		s.fail(c, err)
		return
	}
	instruction, err := s.broker.ArchivingInstruction(thread)
	if err != nil {
		s.fail(c, err)
		return
	}

	var background []model.Message
	for _, m := range all {
		if m.Order < orders[0] {
			background = append(background, m)
		}
	}

	suggestion, err := s.suggester.Suggest(c.Request.Context(), instruction, background, targets)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.EncodeMessage(suggestion))
}

func (s *Server) persistMessages(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		unprocessable(c, "cannot read body")
		return
	}
	msgs, err := model.DecodeMessages(raw)
	if err != nil {
		unprocessable(c, err.Error())
		return
	}
	if len(msgs) == 0 {
		unprocessable(c, "no messages to persist")
		return
	}

	stored, err := s.broker.Append(c.Param("thread"), msgs)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]model.Message, 0, len(msgs))
	for _, m := range stored {
		if slices.ContainsFunc(msgs, func(p model.Message) bool { return p.Order == m.Order }) {
			out = append(out, m)
		}
	}
	c.JSON(http.StatusOK, model.EncodeMessages(out))
}

func (s *Server) commitArchive(c *gin.Context) {
	thread := c.Param("thread")

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		unprocessable(c, "cannot read body")
		return
	}
	m, err := model.DecodeMessage(raw)
	if err != nil {
		unprocessable(c, err.Error())
		return
	}
	if m.ThreadUID != thread {
		unprocessable(c, "archive belongs to another thread")
		return
	}
	if !m.IsArchiveSuggestion() {
		unprocessable(c, "archive_for must not be empty")
		return
	}
	if _, err := s.broker.MessagesByOrders(thread, m.ArchiveFor); err != nil {
		s.fail(c, err)
		return
	}

	name, err := s.broker.SaveArchive(m)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info().Str("thread", thread).Str("file", name).Ints("orders", m.ArchiveFor).Msg("archive committed")
	c.JSON(http.StatusOK, model.EncodeMessage(m))
}
