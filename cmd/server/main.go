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

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/kanban-sync/internal/config"
	"github.com/yukikurage/kanban-sync/internal/database"
	"github.com/yukikurage/kanban-sync/internal/handlers"
	"github.com/yukikurage/kanban-sync/internal/logging"
	"github.com/yukikurage/kanban-sync/internal/realtime"
	"github.com/yukikurage/kanban-sync/internal/repository"
	"github.com/yukikurage/kanban-sync/internal/services"
	"gorm.io/gorm"
)

var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "kanban",
		Short:         "Collaborative kanban board with live synchronization",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(grantAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetString("port")
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringP("port", "p", "", "Listen port (overrides PORT)")
	cmd.Flags().String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func grantAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <email>",
		Short: "Give an existing user admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := logging.New(os.Stderr, cfg.LogLevel)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close(db)

			// No sessions are live in this process; the registry only
			// satisfies the publisher.
			registry := realtime.NewRegistry(1, logger)
			defer registry.Close()
			bus := realtime.NewBus(registry, logger)

			users := services.NewUserService(repository.NewUserRepository(db), bus, logger)
			user, err := users.GrantAdminByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to grant admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now an admin\n", user.Username, user.Email)
			return nil
		},
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stdout, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store, err := sessionStore(cfg)
	if err != nil {
		return err
	}

	registry := realtime.NewRegistry(cfg.EventBuffer, logger)
	bus := realtime.NewBus(registry, logger)

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	logRepo := repository.NewActionLogRepository(db)

	resolver := services.NewConflictResolver(taskRepo, userRepo)
	audit := services.NewAuditLog(logRepo, bus, logger)

	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	if !aiService.Enabled() {
		logger.Info(ctx, "OPENAI_API_KEY not set, task generation disabled")
	}

	router := handlers.NewRouter(handlers.Deps{
		AuthService: services.NewAuthService(userRepo, bus, logger),
		UserService: services.NewUserService(userRepo, bus, logger),
		TaskService: services.NewTaskService(taskRepo, resolver, audit, bus, logger),
		Assigner:    services.NewSmartAssigner(userRepo, taskRepo, resolver, audit, bus, logger),
		AIService:   aiService,
		Audit:       audit,
		Registry:    registry,
		Bus:         bus,
		Logger:      logger,
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenTTL:    cfg.TokenTTL,
	}, store)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "addr", srv.Addr, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		registry.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")

	// Event streams never finish on their own; closing the registry ends them.
	registry.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func sessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.RedisHost == "" {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisHost+":"+cfg.RedisPort,
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	store.Options(options)
	return store, nil
}
