package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/auth"
	"github.com/shape-portfolio/site/internal/config"
	"github.com/shape-portfolio/site/internal/logging"
	"github.com/shape-portfolio/site/internal/ratelimit"
	"github.com/shape-portfolio/site/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	gin.SetMode(cfg.Server.Mode)

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development || cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Default credentials for development only
	if cfg.Admin.Password == "" && cfg.Admin.PasswordHash == "" && cfg.Server.Mode == gin.DebugMode {
		cfg.Admin.Password = "admin123"
		log.Warn("using default admin password, set ADMIN_PASSWORD")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	skills := store.DefaultSkills
	if cfg.SeedFile != "" {
		if skills, err = loadSeed(cfg.SeedFile); err != nil {
			return err
		}
	}
	if n, err := st.SeedSkills(ctx, skills); err != nil {
		return err
	} else if n > 0 {
		log.Info("seeded default skills", zap.Int("count", n))
	}

	authn, err := auth.New(auth.Options{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
		Secret:       cfg.Admin.Secret,
		APIToken:     cfg.Admin.APIToken,
		TTL:          cfg.Admin.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("setting up admin auth: %w", err)
	}
	if cfg.Admin.Secret == "" {
		log.Warn("admin.secret not set, sessions will not survive a restart (run genkey)")
	}

	contact, login, rdb, err := newLimiters(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	srv, err := newServer(deps{
		cfg:     cfg,
		store:   st,
		auth:    authn,
		contact: contact,
		login:   login,
		log:     log,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go srv.janitor(ctx, time.Hour)

	log.Info("portfolio server starting",
		zap.String("addr", cfg.Addr()),
		zap.String("mode", cfg.Server.Mode),
		zap.String("database", st.Path()),
		zap.Bool("redis", rdb != nil),
		zap.String("smtp_user", logging.Redact(cfg.SMTP.User)),
		zap.Bool("visitor_tracking", cfg.Visitors.Enabled))
	log.Info("admin access available at /admin/login")

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := srv.close(shutdownCtx); err != nil {
		log.Warn("mail queue not drained before shutdown", zap.Error(err))
	}
	return nil
}

// newLimiters builds the contact and login limiters, shared through Redis
// when redis.addr is set.
func newLimiters(ctx context.Context, cfg *config.Config) (contact, login ratelimit.Limiter, rdb *redis.Client, err error) {
	rl := cfg.RateLimit
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory(rl.ContactLimit, rl.ContactWindow),
			ratelimit.NewMemory(rl.LoginLimit, rl.LoginWindow), nil, nil
	}
	rdb, err = ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	return ratelimit.NewRedis(rdb, "portfolio:contact:", rl.ContactLimit, rl.ContactWindow),
		ratelimit.NewRedis(rdb, "portfolio:login:", rl.LoginLimit, rl.LoginWindow), rdb, nil
}

// janitor runs periodic housekeeping until ctx ends: visitor retention and
// expiring in-memory rate limit buckets.
func (s *server) janitor(ctx context.Context, every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		s.purgeOldVisits(ctx)
		for _, l := range []ratelimit.Limiter{s.contactLimit, s.loginLimit} {
			if m, ok := l.(*ratelimit.Memory); ok {
				m.Sweep()
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
