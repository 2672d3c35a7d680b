package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/auth"
	"github.com/shape-portfolio/site/internal/config"
	"github.com/shape-portfolio/site/internal/mailer"
	"github.com/shape-portfolio/site/internal/markdown"
	"github.com/shape-portfolio/site/internal/metrics"
	"github.com/shape-portfolio/site/internal/ratelimit"
	"github.com/shape-portfolio/site/internal/store"
)

// server holds everything the handlers need.
type server struct {
	cfg          *config.Config
	store        *store.Store
	auth         *auth.Authenticator
	mail         *mailer.Queue
	contactLimit ratelimit.Limiter
	loginLimit   ratelimit.Limiter
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	md           *markdown.Renderer
	log          *zap.Logger

	hashingSalt string
	// bg tracks fire-and-forget work such as visitor tracking.
	bg sync.WaitGroup
}

// deps are the pieces built outside the server, mostly so tests can swap them.
type deps struct {
	cfg     *config.Config
	store   *store.Store
	auth    *auth.Authenticator
	sender  mailer.Sender
	contact ratelimit.Limiter
	login   ratelimit.Limiter
	log     *zap.Logger
}

func newServer(d deps) (*server, error) {
	salt, err := generateSalt()
	if err != nil {
		return nil, err
	}
	s := &server{
		cfg:          d.cfg,
		store:        d.store,
		auth:         d.auth,
		contactLimit: d.contact,
		loginLimit:   d.login,
		registry:     prometheus.NewRegistry(),
		md:           markdown.New(),
		log:          d.log,
		hashingSalt:  salt,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.contactLimit == nil {
		s.contactLimit = ratelimit.NewMemory(d.cfg.RateLimit.ContactLimit, d.cfg.RateLimit.ContactWindow)
	}
	if s.loginLimit == nil {
		s.loginLimit = ratelimit.NewMemory(d.cfg.RateLimit.LoginLimit, d.cfg.RateLimit.LoginWindow)
	}

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = metrics.New(s.registry)

	sender := d.sender
	if sender == nil {
		sender = &mailer.SMTPSender{
			Host: d.cfg.SMTP.Host,
			Port: d.cfg.SMTP.Port,
			User: d.cfg.SMTP.User,
			Pass: d.cfg.SMTP.Pass,
			From: d.cfg.SMTP.From,
		}
	}
	s.mail = mailer.NewQueue(sender, d.cfg.SMTP.Queue, d.cfg.SMTP.Workers, s.log.Named("mail"), s.mailDelivered)
	return s, nil
}

// mailConfigured reports whether replies can be sent at all.
func (s *server) mailConfigured() bool {
	return s.cfg.SMTPConfigured()
}

// mailDelivered runs on the mail workers after every attempt.
func (s *server) mailDelivered(m mailer.Mail, err error) {
	s.metrics.Mail(m.Kind, err)
	s.metrics.MailQueueDepth.Set(float64(s.mail.Len()))
	if err != nil || m.Ref == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.MarkMessageReplied(ctx, m.Ref); err != nil {
		s.log.Warn("marking message replied after delivery", zap.Int64("message_id", m.Ref), zap.Error(err))
	}
}

// handler builds the gin engine and wraps it in CORS.
func (s *server) handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLogger(), s.observe(), s.visitorTracking())
	r.SetHTMLTemplate(s.templates())

	r.Static("/static", s.cfg.Server.StaticDir)
	r.Static("/image", s.cfg.Uploads.Dir)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.setupAPIRoutes(r)
	s.setupPageRoutes(r)
	s.setupAdminRoutes(r)

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool { return true },
		AllowedMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization", "X-Requested-With", "Accept", "X-Auth-Token",
		},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

func (s *server) setupAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/health", s.handleHealth)
	api.POST("/contact", s.handleContact)
	api.POST("/admin/login", s.handleAPILogin)
	api.POST("/admin/logout", s.handleAPILogout)

	public := api.Group("", s.optionalAdmin())
	public.GET("/projects", s.handleListProjects)
	public.GET("/projects/:id", s.handleGetProject)
	public.GET("/skills", s.handleListSkills)

	admin := api.Group("", s.requireAdminAPI())
	admin.GET("/messages", s.handleListMessages)
	admin.PUT("/messages/:id/read", s.handleMarkRead)
	admin.PUT("/messages/:id/replied", s.handleMarkReplied)
	admin.DELETE("/messages/:id", s.handleDeleteMessage)
	admin.POST("/send-email", s.handleSendEmail)

	admin.POST("/projects", s.handleCreateProject)
	admin.PUT("/projects/:id", s.handleUpdateProject)
	admin.DELETE("/projects/:id", s.handleDeleteProject)
	admin.PUT("/projects/:id/status", s.handleProjectStatus)
	admin.POST("/projects/:id/images", s.handleUploadImages)
	admin.POST("/projects/:id/report", s.handleUploadReport)

	admin.POST("/skills", s.handleCreateSkill)
	admin.PUT("/skills/:id", s.handleUpdateSkill)
	admin.DELETE("/skills/:id", s.handleDeleteSkill)

	admin.GET("/admin/stats", s.handleAdminStats)
}

func (s *server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(); err != nil {
		s.log.Error("health check: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// close waits for background work and drains the mail queue.
func (s *server) close(ctx context.Context) error {
	s.bg.Wait()
	return s.mail.Shutdown(ctx)
}
