package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/auth"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/backup"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/config"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/database"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/email"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/logging"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/push"
	"github.com/krishnaganguri/choreo-sweep-sub000/internal/server"
)

const cleanupInterval = time.Hour

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid-keys" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("CHOREO_VAPID_PUBLIC_KEY=%s\nCHOREO_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 {
		if err := runBackupCommand(cfg, logger, os.Args[1], os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("choreo stopped", "error", err)
		os.Exit(1)
	}
}

func backupConfig(cfg *config.Config) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.BackupS3Endpoint,
			Bucket:    cfg.BackupS3Bucket,
			Region:    cfg.BackupS3Region,
			AccessKey: cfg.BackupS3AccessKey,
			SecretKey: cfg.BackupS3SecretKey,
		},
		Passphrase: cfg.BackupPassphrase,
		Interval:   cfg.BackupInterval,
		Retention:  cfg.BackupRetention,
	}
}

// runBackupCommand handles the one-shot operator commands:
//
//	choreo backup           upload a backup now
//	choreo backups          list stored backups
//	choreo restore <key>    restore a backup over CHOREO_DB_PATH (server stopped)
func runBackupCommand(cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "backup":
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		key, err := backup.NewManager(backupConfig(cfg), db, logger).RunNow(ctx)
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	case "backups":
		objs, err := backup.NewManager(backupConfig(cfg), nil, logger).List(ctx)
		if err != nil {
			return err
		}
		for _, o := range objs {
			fmt.Printf("%s\t%d\t%s\n", o.Key, o.Size, o.CreatedAt.Format(time.RFC3339))
		}
		return nil
	case "restore":
		if len(args) != 1 {
			return errors.New("usage: choreo restore <key>")
		}
		return backup.NewManager(backupConfig(cfg), nil, logger).Restore(ctx, args[0], cfg.DBPath)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		logger.Warn("CHOREO_JWT_SECRET not set, sessions will not survive a restart")
	}

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !emailClient.Configured() {
		logger.Warn("CHOREO_POSTMARK_TOKEN not set, password reset and invitation emails are disabled")
	}
	if !cfg.PushEnabled() {
		logger.Info("VAPID keys not set, push notifications are disabled")
	}

	srv := server.New(db, server.Config{
		Auth: auth.Config{
			Secret:         secret,
			AccessTokenTTL: cfg.AccessTokenTTL,
			SessionTTL:     cfg.SessionTTL,
		},
		Push: push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubscriber,
		},
		NotifyInterval:  cfg.NotifyInterval,
		NotifyLookahead: cfg.NotifyLookahead,
		WebDir:          cfg.WebDir,
		AllowedOrigins:  cfg.AllowedOrigins,
	}, emailClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)
	defer srv.Close()

	backups := backup.NewManager(backupConfig(cfg), db, logger)
	if backups.Status().State == backup.StateDisabled {
		logger.Info("backup storage or passphrase not set, backups are disabled")
	}
	backups.Start(ctx)
	defer backups.Stop()

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.Cleanup()
			}
		}
	}()

	// Request contexts derive from ctx so realtime connections end on shutdown.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("choreo listening", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
