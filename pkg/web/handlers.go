package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sampler/pkg/hub"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the current sampler state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Snapshot())
}

// handleCapturesWS streams capture events until the client goes away.
func (s *Server) handleCapturesWS(c *websocket.Conn) {
	hub.NewClient(s.captures, c).Run()
}
