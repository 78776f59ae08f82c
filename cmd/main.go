package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/okian/battletrack/internal/adapters/discord"
	"github.com/okian/battletrack/internal/adapters/http/api"
	"github.com/okian/battletrack/internal/app"
	"github.com/okian/battletrack/internal/config"
	"github.com/okian/battletrack/pkg/logger"
	"github.com/okian/battletrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logger.Error(err))
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log level, keeping default", logger.String("level", cfg.LogLevel))
	}

	sess, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Error(ctx, "failed to create discord session", logger.Error(err))
		return
	}

	svc := app.New(cfg,
		app.WithNotifier(discord.NewNotifier(sess)),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	bot := discord.NewBot(sess, svc, cfg.DiscordAppID, cfg.DiscordGuildID)
	if err := bot.Register(); err != nil {
		log.Error(ctx, "failed to register discord commands", logger.Error(err))
		return
	}
	if err := sess.Open(); err != nil {
		log.Error(ctx, "failed to open discord gateway", logger.Error(err))
		return
	}
	defer func() { _ = sess.Close() }()
	log.Info(ctx, "discord gateway connected")

	mux := http.NewServeMux()
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(mux)
	mux.Handle("/metrics", metrics.Default().Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", logger.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http shutdown failed", logger.Error(err))
	}
}
