package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/tutoring-platform/internal"
	"github.com/frahmantamala/tutoring-platform/internal/auth"
	"github.com/frahmantamala/tutoring-platform/internal/booking"
	bookingpg "github.com/frahmantamala/tutoring-platform/internal/booking/postgres"
	"github.com/frahmantamala/tutoring-platform/internal/core/events"
	"github.com/frahmantamala/tutoring-platform/internal/gateway"
	"github.com/frahmantamala/tutoring-platform/internal/notification"
	"github.com/frahmantamala/tutoring-platform/internal/payment"
	paymentpg "github.com/frahmantamala/tutoring-platform/internal/payment/postgres"
	"github.com/frahmantamala/tutoring-platform/internal/paymentmethod"
	paymentmethodpg "github.com/frahmantamala/tutoring-platform/internal/paymentmethod/postgres"
	"github.com/frahmantamala/tutoring-platform/internal/session"
	sessionpg "github.com/frahmantamala/tutoring-platform/internal/session/postgres"
	"github.com/frahmantamala/tutoring-platform/internal/transaction"
	transactionpg "github.com/frahmantamala/tutoring-platform/internal/transaction/postgres"
	"github.com/frahmantamala/tutoring-platform/internal/transport"
	"github.com/frahmantamala/tutoring-platform/internal/transport/rest"
	"github.com/frahmantamala/tutoring-platform/internal/user"
	userpg "github.com/frahmantamala/tutoring-platform/internal/user/postgres"
	"github.com/frahmantamala/tutoring-platform/pkg/logger"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
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
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.L()

	if err := validateOpenAPISpec("./api/openapi.yml"); err != nil {
		appLogger.Warn("openapi spec check failed", "error", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	handlers := buildHandlers(config, gormDB, appLogger)

	return &Dependencies{
		Config:   config,
		Logger:   appLogger,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		Handlers: handlers,
	}, nil
}

func buildHandlers(config *internal.Config, gormDB *gorm.DB, appLogger *slog.Logger) rest.Handlers {
	eventBus := events.NewEventBus(appLogger)

	gatewayClient := gateway.NewClient(gateway.Config{
		ShopID:        config.Yookassa.ShopID,
		SecretKey:     config.Yookassa.SecretKey,
		BaseURL:       config.Yookassa.BaseURL,
		ReturnURLBase: config.Yookassa.ReturnURLBase,
	}, appLogger)

	userRepo := userpg.NewUserRepository(gormDB)
	transactionRepo := transactionpg.NewTransactionRepository(gormDB)
	paymentMethodRepo := paymentmethodpg.NewPaymentMethodRepository(gormDB)
	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	sessionRepo := sessionpg.NewSessionRepository(gormDB)
	bookingRepo := bookingpg.NewBookingRepository(gormDB)

	userService := user.NewService(userRepo, appLogger)
	transactionService := transaction.NewService(transactionRepo, appLogger)
	paymentMethodService := paymentmethod.NewService(
		paymentMethodRepo, userService, gatewayClient, transactionService, paymentRepo, eventBus, appLogger)
	sessionService := session.NewService(sessionRepo, userService, appLogger)
	paymentService := payment.NewService(
		paymentRepo, sessionService, paymentMethodService, gatewayClient, transactionService, eventBus, appLogger)
	bookingService := booking.NewService(bookingRepo, userService, eventBus, appLogger)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost)

	var sender notification.EmailSender
	if config.SMTP.Host != "" {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     config.SMTP.Host,
			Port:     config.SMTP.Port,
			From:     config.SMTP.From,
			Username: config.SMTP.Username,
			Password: config.SMTP.Password,
		}, appLogger)
	} else {
		sender = notification.NewNoopSender(appLogger)
	}
	notification.NewEventHandler(sender, userService, appLogger).RegisterEventHandlers(eventBus)

	webhookHandler := payment.NewWebhookHandler(
		transport.NewBaseHandler(appLogger),
		gatewayClient,
		transactionService,
		paymentMethodService,
		paymentService,
		appLogger,
	)

	return rest.Handlers{
		Auth:          auth.NewHandler(authService),
		User:          user.NewHandler(userService, appLogger),
		PaymentMethod: paymentmethod.NewHandler(paymentMethodService, appLogger),
		Payment:       payment.NewHandler(paymentService, appLogger),
		Webhook:       webhookHandler,
		Session:       session.NewHandler(sessionService, appLogger),
		Booking:       booking.NewHandler(bookingService, appLogger),
	}
}

// validateOpenAPISpec makes sure the served contract still parses, so a
// broken spec is caught at boot instead of in the swagger UI.
func validateOpenAPISpec(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("load spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("validate spec: %w", err)
	}
	return nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
