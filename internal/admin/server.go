// Package admin serves the onebyted HTTP surface: health probes, a device
// snapshot, prometheus metrics and a reset hook.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/onebyte/internal/auth"
	"github.com/danmuck/onebyte/internal/device"
	"github.com/danmuck/onebyte/internal/observability"
)

// Clients reports connected transport clients. *transport.Server
// satisfies it.
type Clients interface {
	Active() int64
}

// Config names the service and sets CORS origins. A non-empty Token
// guards POST routes with a bearer token.
type Config struct {
	Name        string
	CorsOrigins []string
	Token       string
}

type Server struct {
	name    string
	token   string
	dev     *device.Device
	clients Clients
	router  *gin.Engine
	started time.Time
}

// New builds the router. clients may be nil.
func New(cfg Config, dev *device.Device, clients Clients) *Server {
	name := cfg.Name
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		name:    name,
		token:   cfg.Token,
		dev:     dev,
		clients: clients,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": s.name,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		if !s.dev.Snapshot().Loaded {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	s.router.GET("/status", func(c *gin.Context) {
		var active int64
		if s.clients != nil {
			active = s.clients.Active()
		}
		c.JSON(http.StatusOK, gin.H{
			"service": s.name,
			"device":  s.dev.Snapshot(),
			"clients": active,
		})
	})

	mutating := s.router.Group("/")
	if s.token != "" {
		mutating.Use(auth.Require(auth.StaticToken{Token: s.token}))
	}
	mutating.POST("/reset", func(c *gin.Context) {
		if err := s.dev.Reset(); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, device.ErrNotLoaded) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		log.Info().Str("service", s.name).Msg("device reset")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "device": s.dev.Snapshot()})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("service", s.name).Str("addr", ln.Addr().String()).Msg("admin listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
