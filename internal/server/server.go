// Package server exposes the public registration endpoints and the
// secret-protected admin surface.
package server

import (
	"crypto/hmac"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"expo-registration/internal/config"
	"expo-registration/internal/images"
	"expo-registration/internal/notify"
	"expo-registration/internal/payments"
	"expo-registration/internal/reconciler"
	"expo-registration/internal/store"
)

type Server struct {
	cfg      config.Config
	store    *store.Store
	rec      *reconciler.Reconciler
	pay      payments.Provider
	uploader images.Uploader
	notifier *notify.Telegram
	log      zerolog.Logger

	statsMu sync.Mutex
	stats   store.Stats
	statsAt time.Time
}

func New(cfg config.Config, st *store.Store, rec *reconciler.Reconciler, pay payments.Provider,
	uploader images.Uploader, notifier *notify.Telegram, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		rec:      rec,
		pay:      pay,
		uploader: uploader,
		notifier: notifier,
		log:      log.With().Str("component", "server").Logger(),
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/register", s.handleRegister)
	api.GET("/registration", s.handleFindRegistration)

	admin := api.Group("/admin")
	admin.Use(s.adminAuth())
	{
		admin.GET("/stats", s.handleStats)
		admin.GET("/search", s.handleSearch)
		admin.POST("/checkin", s.handleCheckIn)
		admin.POST("/undo-checkin", s.handleUndoCheckIn)
		admin.GET("/export", s.handleExport)
		admin.POST("/sync", s.handleSync)
	}

	return r
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.Router(),
	}
}

func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Admin-Secret")
		if secret == "" || !hmac.Equal([]byte(secret), []byte(s.cfg.AdminSecret)) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "admin secret required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
