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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medhelp/medhelp/internal/config"
	"github.com/medhelp/medhelp/internal/domain/identity"
	"github.com/medhelp/medhelp/internal/domain/notification"
	"github.com/medhelp/medhelp/internal/domain/scheduling"
	"github.com/medhelp/medhelp/internal/platform/auth"
	"github.com/medhelp/medhelp/internal/platform/db"
	"github.com/medhelp/medhelp/internal/platform/jobs"
	"github.com/medhelp/medhelp/internal/platform/middleware"
	"github.com/medhelp/medhelp/internal/platform/video"
	"github.com/medhelp/medhelp/internal/platform/ws"
)

// doctorDirectory adapts the identity service to the lookup interface the
// scheduling engine consumes, avoiding a package cycle between the two
// domains. Absent doctors resolve to (nil, nil).
type doctorDirectory struct {
	svc *identity.Service
}

func (d doctorDirectory) LookupDoctor(ctx context.Context, doctorID uuid.UUID) (*scheduling.DoctorRecord, error) {
	doc, err := d.svc.LookupDoctor(ctx, doctorID)
	return d.record(ctx, doc, err)
}

func (d doctorDirectory) LookupOwningDoctor(ctx context.Context, userID uuid.UUID) (*scheduling.DoctorRecord, error) {
	doc, err := d.svc.LookupOwningDoctor(ctx, userID)
	return d.record(ctx, doc, err)
}

func (d doctorDirectory) record(ctx context.Context, doc *identity.Doctor, err error) (*scheduling.DoctorRecord, error) {
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	verified, err := d.svc.IsVerifiedDoctor(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &scheduling.DoctorRecord{ID: doc.ID, UserID: doc.UserID, Verified: verified}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medhelp-server",
		Short: "MedHelp appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Platform pieces
	issuer := auth.NewTokenIssuer(cfg.SigningKey(), time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	registry := ws.NewRegistry(logger)
	links := video.NewLinkGenerator(cfg.MeetBaseURL)
	txManager := db.NewTxManager(pool)

	// Services
	notifySvc := notification.NewService(notification.NewRepoPG(pool), registry, logger)
	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		issuer,
		notifySvc,
		logger,
	)
	schedulingSvc := scheduling.NewService(
		scheduling.NewAvailabilityRepoPG(pool),
		scheduling.NewAppointmentRepoPG(pool),
		doctorDirectory{svc: identitySvc},
		links,
		notifySvc,
		txManager,
		logger,
	)

	// Route groups. Registration and login stay public; everything else
	// requires a valid token.
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.JWTMiddleware(issuer))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	notification.NewHandler(notifySvc).RegisterRoutes(api)
	ws.NewHandler(registry).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Background jobs
	scheduler := jobs.NewScheduler(schedulingSvc, cfg.ReminderCron, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start background jobs")
	}
	defer scheduler.Stop()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
