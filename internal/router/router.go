package router

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"usercrud/internal/handler"
	"usercrud/internal/logger"
)

// Register wires routes and middleware.
func Register(e *echo.Echo, log zerolog.Logger, userHandler *handler.UserHandler) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	users := e.Group("/users")
	users.GET("", userHandler.ListUsers)
	users.POST("", userHandler.CreateUser)
	users.POST("/authenticate", userHandler.AuthenticateUser)
	users.GET("/:id", userHandler.GetUser)
	users.PATCH("/:id", userHandler.PatchUser)
	users.DELETE("/:id", userHandler.DeleteUser)
}
