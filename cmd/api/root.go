package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/adapters/rest"
	"github.com/ewilliams-labs/emotune/internal/config"
	"github.com/ewilliams-labs/emotune/internal/core/services"
	"github.com/ewilliams-labs/emotune/internal/logger"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "emotune",
		Short:         "Emotune plays music that matches how you look.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFiles)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and detection loop",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), envFiles)
			},
		},
		&cobra.Command{
			Use:   "login-url",
			Short: "Print the Spotify authorize URL",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLoginURL(cmd, envFiles)
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the persisted Spotify token",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLogout(cmd, envFiles)
			},
		},
	)
	return root
}

func setup(envFiles []string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, OutputPath: cfg.LogFile})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, envFiles []string) error {
	// 1. Configuration
	cfg, log, err := setup(envFiles)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.LoginConfigured() {
		log.Warn("SPOTIFY_CLIENT_ID is not set; login is disabled until it is configured")
	}

	// 2. Adapters and core services
	wired, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer wired.Close()

	if err := wired.engine.Auth().RestoreSession(ctx); err != nil {
		log.Warn("stored session could not be restored", zap.Error(err))
	}

	// 3. Driving adapter
	handler := rest.NewHandler(wired.engine, wired.tracks, log, rest.WithLoginRedirect(cfg.LoginRedirect))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	// 4. Serve until interrupted
	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()
	log.Info("emotune api listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageDriver))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		return err
	case <-sigCtx.Done():
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", zap.Error(err))
			return err
		}
	}
	return nil
}

func runLoginURL(cmd *cobra.Command, envFiles []string) error {
	cfg, log, err := setup(envFiles)
	if err != nil {
		return err
	}
	if !cfg.LoginConfigured() {
		return errors.New("SPOTIFY_CLIENT_ID is not set")
	}
	// a server that never began a login accepts the state printed here
	auth := services.NewAuth(newMusicClient(cfg, log), nil, cfg.SpotifyClientID, nil, log)
	url, err := auth.BeginLogin()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func runLogout(cmd *cobra.Command, envFiles []string) error {
	cfg, log, err := setup(envFiles)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := openTokenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.ClearToken(ctx); err != nil {
		return err
	}
	log.Info("persisted token cleared", zap.String("storage", cfg.StorageDriver))
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}
