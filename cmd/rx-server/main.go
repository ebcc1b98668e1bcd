package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medrx/medrx/internal/config"
	"github.com/medrx/medrx/internal/domain/drug"
	"github.com/medrx/medrx/internal/domain/identity"
	"github.com/medrx/medrx/internal/domain/prescription"
	"github.com/medrx/medrx/internal/ingest"
	"github.com/medrx/medrx/internal/platform/auth"
	"github.com/medrx/medrx/internal/platform/cache"
	"github.com/medrx/medrx/internal/platform/db"
	"github.com/medrx/medrx/internal/platform/middleware"
	"github.com/medrx/medrx/internal/platform/secrets"
)

const (
	sessionSecretName = "session-secret"
	secretCacheTTL    = 5 * time.Minute
	drugCacheTTL      = 5 * time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rx-server",
		Short: "Digital prescription API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prescription API server",
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the drug brand index from a BrandMaster export",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			logger := newLogger()
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

			rows, err := ingest.New(pool, logger).Run(ctx, file)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			fmt.Printf("Loaded %d brand row(s).\n", rows)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to the tab-separated BrandMaster export")
	return cmd
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// sessionSecretSource picks where the session signing key comes from: a
// mounted secret file when configured, the value passed directly via config,
// or the environment.
func sessionSecretSource(cfg *config.Config) (secrets.Source, string) {
	if cfg.SessionSecretFile != "" {
		return secrets.FileSource{Dir: filepath.Dir(cfg.SessionSecretFile)}, filepath.Base(cfg.SessionSecretFile)
	}
	if cfg.SessionSecret != "" {
		return secrets.Static{sessionSecretName: cfg.SessionSecret}, sessionSecretName
	}
	return secrets.EnvSource{}, sessionSecretName
}

func runServer() error {
	logger := newLogger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Session secret source. In development without any configured secret a
	// random per-process key is generated, which invalidates sessions on
	// restart but keeps local setup friction-free.
	src, secretName := sessionSecretSource(cfg)
	if cfg.IsDev() && cfg.SessionSecret == "" && cfg.SessionSecretFile == "" {
		if _, err := src.Fetch(ctx, secretName); err != nil {
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				logger.Fatal().Err(err).Msg("failed to generate dev session secret")
			}
			src = secrets.Static{sessionSecretName: hex.EncodeToString(buf)}
			secretName = sessionSecretName
			logger.Warn().Msg("no session secret configured, using a random per-process key")
		}
	}
	secretCache := secrets.NewCached(src, secretCacheTTL)

	// Cache
	var drugCache cache.Cache
	if cfg.RedisURL != "" {
		redis, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redis.Close()
		drugCache = redis
		logger.Info().Msg("connected to redis")
	} else {
		mem := cache.NewMemory()
		defer mem.Close()
		drugCache = mem
	}

	// Services
	identitySvc := identity.NewService(
		identity.NewUserRepo(pool),
		identity.NewPatientProfileRepo(pool),
		identity.NewDoctorProfileRepo(pool),
	)
	sessions := auth.NewSessionManager(secretCache, secretName, identitySvc)
	prescriptionSvc := prescription.NewService(prescription.NewRepo(pool), identitySvc)
	drugSvc := drug.NewService(drug.NewIndex(pool), drugCache, drugCacheTTL)

	credCfg := auth.CredentialConfig{Issuer: cfg.CredentialIssuer}
	credMW := auth.CredentialMiddleware(credCfg)
	sessMW := auth.SessionMiddleware(sessions)
	identMW := auth.IdentityMiddleware(sessions, credCfg)

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
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Routes
	api := e.Group("/api/v1")
	identity.NewHandler(identitySvc, sessions, cfg.PatientClientID, cfg.DoctorClientID).RegisterRoutes(api, credMW, sessMW)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(api, sessMW)
	drug.NewHandler(drugSvc).RegisterRoutes(api, identMW)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

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
