package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HelloText is served on GET / so uptime checks have something to hit
const HelloText = "Hello from Telegram Bot Server!"

// Submitter accepts updates for asynchronous handling
type Submitter interface {
	TrySubmit(update tgbotapi.Update) error
	Pending() int
}

// NewRouter builds the webhook routes. Telegram delivers updates to
// /bot<token>; any other token is answered with 404.
func NewRouter(token string, updates Submitter) *gin.Engine {
	logger := log.With().Str("component", "webhook").Logger()

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, HelloText)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"pending": updates.Pending(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.POST("/bot:token", func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(token)) != 1 {
			c.Status(http.StatusNotFound)
			return
		}

		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			logger.Warn().Err(err).Msg("Rejected malformed update")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
			return
		}

		if err := updates.TrySubmit(update); err != nil {
			// Telegram redelivers on non-2xx responses
			logger.Warn().Err(err).Int("update_id", update.UpdateID).Msg("Update queue saturated")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// the webhook path embeds the bot token
		logger.Debug().
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

// Server is the HTTP listener for webhook deliveries
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// New creates a server on addr (":3000")
func New(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: log.With().Str("component", "http_server").Logger(),
	}
}

// Start blocks serving requests until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Starting HTTP server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
