package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"persinteret/backend/internal/state"
)

// RequestIDHeader carries the id used to correlate a request across logs
const RequestIDHeader = "X-Request-ID"

// PeopleService is what the HTTP layer needs from people.Service
type PeopleService interface {
	List(ctx context.Context, filter string, withImage bool, limit int) ([]state.Person, error)
	Get(ctx context.Context, id string, withImage bool) (*state.Person, error)
	Photo(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, person *state.Person) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	Stats(ctx context.Context) (*state.Stats, error)
}

// NewRouter builds the gin engine serving the people API
func NewRouter(svc PeopleService, log *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{svc: svc, log: log}

	// API routes
	api := router.Group("/api")
	{
		api.GET("/people", h.listPeople)
		api.POST("/people", h.createPerson)
		api.DELETE("/people", h.deleteAll)
		api.GET("/people/:id", h.getPerson)
		api.PUT("/people/:id", h.updatePerson)
		api.DELETE("/people/:id", h.deletePerson)
		api.GET("/people/:id/photo", h.getPhoto)
		api.GET("/stats", h.stats)
	}

	return router
}

// requestID reuses the caller's request id or mints one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
