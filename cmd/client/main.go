package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/config"
	"github.com/DoyleJ11/arena-client/internal/cooldown"
	"github.com/DoyleJ11/arena-client/internal/gateway"
	"github.com/DoyleJ11/arena-client/internal/httpapi"
	"github.com/DoyleJ11/arena-client/internal/hub"
	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/push"
	"github.com/DoyleJ11/arena-client/internal/reconcile"
	"github.com/DoyleJ11/arena-client/internal/session"
	"github.com/DoyleJ11/arena-client/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("client stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	msgs := i18n.New(cfg.Locale)
	gw := gateway.New(cfg.APIBase, gateway.WithLogger(logger), gateway.WithPrinter(msgs))
	playerStore, adminStore := session.NewStore(), session.NewStore()
	client := api.New(gw, playerStore, adminStore, logger)

	store := cache.New(cache.WithMaxAge(cfg.CacheMaxAge))
	rec := reconcile.New(ctx, store, logger)
	notices := hub.NewHub(ctx)

	gov := cooldown.New(
		cooldown.WithWindow(cooldown.ActionClick, cfg.ClickCooldown),
		cooldown.WithFallback(cfg.RateLimitFallback),
		cooldown.WithLogger(logger),
		cooldown.WithIdleHook(func(key string) {
			logger.Debug("cooldown elapsed", zap.String("key", key))
		}),
	)
	defer gov.Stop()

	set := views.NewSet(views.NewEnv(views.Deps{
		API:      client,
		Cache:    store,
		Rec:      rec,
		Governor: gov,
		Msgs:     msgs,
		Log:      logger,
		Device:   cfg.Device,
	}))

	playerStore.OnChange(func(id session.Identity, active bool) {
		if active {
			notices.Notify(hub.KindSession, msgs.Sprintf(i18n.MsgSignedIn, id.Username))
			return
		}
		notices.Notify(hub.KindSession, msgs.Sprintf(i18n.MsgSignedOut))
	})

	channel := push.Select(cfg.PushEnabled, cfg.PushURL, logger)
	unsubscribe := channel.Subscribe(push.NewDispatcher(notices, rec, msgs, logger).Handle)
	defer unsubscribe()

	// Build the router *with* the views injected
	srv := &http.Server{
		Addr: cfg.ConsoleAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Views:    set,
			Notices:  notices,
			Governor: gov,
			Log:      logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return channel.Run(gctx) })
	g.Go(func() error {
		logger.Info("console listening", zap.String("addr", cfg.ConsoleAddr), zap.String("api_base", cfg.APIBase))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := set.Show(gctx); err != nil {
			logger.Warn("initial load", zap.Error(err))
		}
		if cfg.Username == "" {
			return nil
		}
		if err := set.Auth.Login(gctx, cfg.Username, cfg.Password); err != nil {
			// Not fatal: the console can log in later.
			logger.Warn("auto login failed", zap.String("username", cfg.Username), zap.String("message", set.Auth.Render().Message.Text))
		}
		return nil
	})
	return g.Wait()
}
