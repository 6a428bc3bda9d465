package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	authPostgres "github.com/frahmantamala/hris-auth/internal/auth/postgres"
	"github.com/frahmantamala/hris-auth/internal/authz"
	"github.com/frahmantamala/hris-auth/internal/core/events"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/frahmantamala/hris-auth/internal/role"
	rolePostgres "github.com/frahmantamala/hris-auth/internal/role/postgres"
	sessionPostgres "github.com/frahmantamala/hris-auth/internal/session/postgres"
	"github.com/frahmantamala/hris-auth/internal/transport"
	"github.com/frahmantamala/hris-auth/internal/transport/rest"
	"github.com/frahmantamala/hris-auth/internal/transport/swagger"
	"github.com/frahmantamala/hris-auth/internal/user"
	"github.com/frahmantamala/hris-auth/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	GormDB   *gorm.DB
	DB       *sqlx.DB
	Router   *chi.Mux
	EventBus *events.EventBus
	Metrics  *obs.Metrics
	Auth     *auth.Service
	Roles    *role.Service
	Logger   *slog.Logger
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	gormDB, db, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	deps := NewDependencies(cfg, gormDB, db, logger.L())
	if err := SetupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", cfg.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// in-flight audit and notification handlers
		deps.EventBus.Wait()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// NewDependencies builds the repositories and services over already opened
// connections. gormDB and db must share one underlying pool.
func NewDependencies(cfg *internal.Config, gormDB *gorm.DB, db *sqlx.DB, lg *slog.Logger) *Dependencies {
	if lg == nil {
		lg = logger.L()
	}
	cfg.Security.ApplyDefaults()

	accounts := authPostgres.NewAccountRepository(gormDB)
	sessions := sessionPostgres.NewSessionRepository(gormDB)

	bus := events.NewEventBus(lg)
	bus.SubscribeAll(events.AuthEventTypes, events.LogHandler(lg))

	return &Dependencies{
		Config:   cfg,
		GormDB:   gormDB,
		DB:       db,
		Router:   chi.NewRouter(),
		EventBus: bus,
		Metrics:  obs.NewMetrics(prometheus.NewRegistry()),
		Auth: auth.NewService(
			accounts,
			sessions,
			sessions,
			auth.NewJWTTokenGenerator(cfg.Security),
			cfg.Security,
			lg,
		),
		Roles:  role.NewService(rolePostgres.NewRoleRepository(gormDB), lg),
		Logger: lg,
	}
}

func SetupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	if cfg.Docs.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := swagger.LoadSpec(ctx, cfg.Docs.SpecPath); err != nil {
			return fmt.Errorf("invalid api document: %w", err)
		}
	}

	authHandler := auth.NewHandler(base, deps.Auth, deps.EventBus, deps.Metrics)
	authHandler.RequestTimeout = cfg.Server.RequestTimeout

	userService := user.NewService(
		authPostgres.NewAccountRepository(deps.GormDB),
		sessionPostgres.NewHistoryRepository(deps.DB),
		deps.Logger,
	)

	guard := authz.NewGuard(
		rest.NewOperationRegistry(),
		authz.NewEvaluator(deps.Logger),
		deps.Metrics,
		deps.EventBus,
		deps.Logger,
	)

	rest.RegisterAllRoutes(deps.Router, rest.RouterDeps{
		DB:             deps.DB.DB,
		Auth:           authHandler,
		Users:          user.NewHandler(base, userService),
		Roles:          role.NewHandler(base, deps.Roles),
		Guard:          guard,
		Metrics:        deps.Metrics,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DocsEnabled:    cfg.Docs.Enabled,
		SpecPath:       cfg.Docs.SpecPath,
		Logger:         deps.Logger,
	})
	return nil
}

// initDB opens one pgx pool and shares it between gorm and sqlx.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return gormDB, dbConn, nil
}
