// Package router wires the HTTP routes onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alainbuyze/outlook-categorizer/internal/handler"
)

// New builds the echo server with all routes and middleware registered.
func New(h *handler.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Renderer = handler.NewRenderer()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.POST("/run", h.RunForm)
	e.POST("/api/run", h.RunAPI)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
