package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"habits/internal/adapter/amqp"
	adapthttp "habits/internal/adapter/http"
	"habits/internal/app"
	"habits/internal/card"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	firstWeekday, err := card.ParseWeekday(cfg.Card.FirstWeekday)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	cards := app.NewCardService(st.habits, st.values, logger.Named("cards"), app.CardConfig{
		FirstWeekday: firstWeekday,
		Prefetch:     cfg.Card.Prefetch,
	})
	habits := app.NewHabitService(st.habits, cards)
	authSvc := app.NewAuthService(st.users, st.sessions)

	if cfg.Auth.InitialUser != "" {
		err := authSvc.CreateInitialUser(ctx, cfg.Auth.InitialUser, cfg.Auth.InitialPassword)
		switch {
		case err == nil:
			logger.Info("created initial user", zap.String("username", cfg.Auth.InitialUser))
		case errors.Is(err, app.ErrUsersExist):
		default:
			return err
		}
	}

	if cfg.AMQP.URL != "" {
		pub, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, logger.Named("amqp"))
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		cards.AddListener(pub.Listener())
		logger.Info("publishing card events", zap.String("exchange", cfg.AMQP.Exchange))
	}

	srv := adapthttp.New(habits, cards, authSvc, logger.Named("http"), cfg.WebDir)
	if cfg.Auth.Disabled {
		logger.Warn("authentication disabled")
		srv = srv.WithoutAuth()
	}
	if o := cfg.Auth.OIDC; o.Enabled() {
		if err := srv.WithOIDC(ctx, o.Issuer, o.ClientID, o.ClientSecret, o.RedirectURL); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cleanupSessions(gctx, authSvc, cfg.Auth.SessionCleanup)
		return nil
	})
	return g.Wait()
}

func cleanupSessions(ctx context.Context, authSvc *app.AuthService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authSvc.CleanupSessions(ctx); err != nil {
				logger.Warn("session cleanup failed", zap.Error(err))
			}
		}
	}
}
