package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the handler into a gin engine. env "production" switches
// gin to release mode.
func NewRouter(h *Handler, env string, log logrus.FieldLogger) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(Logger(log))
	router.Use(ErrorHandler())

	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.POST("/analyze", h.Analyze)
		api.POST("/yield", h.Yield)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})

	return router
}
