package http

import "github.com/labstack/echo/v4"

// Handler is a route group mounted by NewServer. The API routes and the
// WebSocket hub both implement it.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
