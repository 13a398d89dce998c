package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"

	"github.com/barbershop/internal/config"
	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/middleware"
	"github.com/barbershop/internal/repository"
	"github.com/barbershop/internal/service"
	"github.com/barbershop/internal/startup"
	"github.com/barbershop/internal/storage/memory"
	"github.com/barbershop/migrations"
)

// Грубый лимит /api/chat/* по IP: опрос fetch раз в несколько секунд укладывается с запасом.
const (
	ipRateWindow = time.Minute
	ipRateMax    = 600
)

// checkFlags: -migrate без -dev требует DATABASE_URL.
func checkFlags(migrate, dev bool, databaseURL string) error {
	if migrate && !dev && databaseURL == "" {
		return errors.New("-migrate requires DATABASE_URL (or -dev)")
	}
	return nil
}

func main() {
	logger.SetPrefix("chat")
	migrate := flag.Bool("migrate", false, "apply lookup table migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	logger.Info("starting chat service")
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	if err := checkFlags(*migrate, *dev, cfg.DatabaseURL); err != nil {
		logger.Errorf("flags: %v", err)
		os.Exit(1)
	}

	if err := startup.EnsureStorageDir(cfg.ChatDir); err != nil {
		logger.Errorf("chat storage: %v", err)
		os.Exit(1)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var url string
		embeddedDB, url, err = startup.StartDevPostgres(".pgdata")
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
		cfg.DatabaseURL = url
	}

	var opts []service.Option
	if cfg.DatabaseURL != "" {
		pool, err := startup.ConnectDB(bgCtx, cfg.DatabaseURL, cfg.DBMaxConnections, 60*time.Second)
		if err != nil {
			logger.Errorf("db: %v", err)
			os.Exit(1)
		}
		defer pool.Close()
		if *dev || *migrate {
			if err := startup.RunMigrations(bgCtx, pool, migrations.Files); err != nil {
				logger.Errorf("migrations: %v", err)
				os.Exit(1)
			}
		}
		if *migrate && !*dev {
			return
		}
		shops := repository.NewShopRepository(pool)
		opts = append(opts, service.WithShopResolver(shops), service.WithOwnershipChecker(shops))
		logger.Info("database connected: appointment channels indexed, conversation list enabled")
	} else {
		logger.Info("no DATABASE_URL: appointment channels are not indexed, conversation list disabled")
	}

	limiter, err := startup.RateLimitStore(bgCtx, cfg.RedisURL, cfg.RateLimitWindow, cfg.RateLimitMax, 60*time.Second)
	if err != nil {
		logger.Errorf("rate limiter: %v", err)
		os.Exit(1)
	}
	defer limiter.Close()

	var wg sync.WaitGroup
	janitor := func(c *memory.Client) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RunJanitor(bgCtx, time.Minute)
		}()
	}
	if mc, ok := limiter.(*memory.Client); ok {
		janitor(mc)
	}
	ipLimiter := memory.New(ipRateWindow, ipRateMax)
	janitor(ipLimiter)

	messages := repository.NewMessageRepository(cfg.ChatDir,
		repository.WithLockTimeout(cfg.LockTimeout),
		repository.WithLockAttempts(cfg.LockAttempts),
		repository.WithLockBackoff(cfg.LockBackoff),
	)
	index := repository.NewConversationIndexRepository(cfg.ChatDir)
	svc := service.NewChatService(messages, index, limiter, opts...)

	srv := &http.Server{
		Addr: cfg.ServerAddr,
		Handler: newRouter(routerDeps{
			cfg:       cfg,
			svc:       svc,
			ipLimiter: ipLimiter,
			auth:      middleware.AuthServiceValidate(cfg.AuthServiceURL, nil),
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s (chat_dir=%s)", cfg.ServerAddr, cfg.ChatDir)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	bgCancel()
	wg.Wait()
	logger.Info("server stopped")
}
