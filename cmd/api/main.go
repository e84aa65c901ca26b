package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	postgresmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/PixieStack/indulge/config"
	irepo "github.com/PixieStack/indulge/internal/repositories/interaction"
	marepo "github.com/PixieStack/indulge/internal/repositories/match"
	merepo "github.com/PixieStack/indulge/internal/repositories/message"
	urepo "github.com/PixieStack/indulge/internal/repositories/user"
	"github.com/PixieStack/indulge/pkg/auth"
	"github.com/PixieStack/indulge/pkg/conversation"
	"github.com/PixieStack/indulge/pkg/database"
	"github.com/PixieStack/indulge/pkg/events"
	"github.com/PixieStack/indulge/pkg/feed"
	"github.com/PixieStack/indulge/pkg/health"
	"github.com/PixieStack/indulge/pkg/kafka"
	"github.com/PixieStack/indulge/pkg/matching"
	"github.com/PixieStack/indulge/pkg/middleware"
	"github.com/PixieStack/indulge/pkg/notify"
	"github.com/PixieStack/indulge/pkg/otp"
	"github.com/PixieStack/indulge/pkg/redis"
	adminroutes "github.com/PixieStack/indulge/pkg/routes/admin"
	authroutes "github.com/PixieStack/indulge/pkg/routes/auth"
	discoveryroutes "github.com/PixieStack/indulge/pkg/routes/discovery"
	matchroutes "github.com/PixieStack/indulge/pkg/routes/matches"
	messageroutes "github.com/PixieStack/indulge/pkg/routes/messages"
	profileroutes "github.com/PixieStack/indulge/pkg/routes/profile"
	promptroutes "github.com/PixieStack/indulge/pkg/routes/prompts"
	subscriptionroutes "github.com/PixieStack/indulge/pkg/routes/subscription"
	verificationroutes "github.com/PixieStack/indulge/pkg/routes/verification"
	"github.com/PixieStack/indulge/pkg/tracing"
	"github.com/PixieStack/indulge/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(&cfg)

	if err := run(&cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx := context.Background()

	// Tracing
	if cfg.TracingEnabled {
		var exporter sdktrace.SpanExporter
		if cfg.TracingOTLPEndpoint == "" {
			exporter = exporters.NewConsoleExporter(logger)
		} else {
			otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
				Endpoint: cfg.TracingOTLPEndpoint,
				Protocol: cfg.TracingOTLPProtocol,
				Insecure: true,
				Timeout:  10 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("failed to create trace exporter: %w", err)
			}
			exporter = otlpExporter
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		otel.SetTracerProvider(tp)
		tracing.SetTracer(otel.Tracer(cfg.AppName))
	}

	// Database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	defer sqlxDB.Close()

	db := database.NewDatabaseInstance(sqlxDB, logger)

	// Migrations
	driver, err := postgresmigrate.WithInstance(sqlxDB.DB, &postgresmigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Kafka
	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaEventsTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}
	emitter := events.NewEmitter(producer, logger)

	// Repositories
	userRepo := urepo.NewRepository(db, logger)
	interactionRepo := irepo.NewRepository(db, logger)
	matchRepo := marepo.NewRepository(db, logger)
	messageRepo := merepo.NewRepository(db, logger)

	// Services
	issuer := auth.NewTokenIssuer(cfg.JWTSecretKey, cfg.JWTExpiry)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	otpStore := otp.NewStore(redisClient, logger, otp.Config{
		TTL:           cfg.OTPTTL,
		SendLimit:     cfg.OTPSendLimit,
		SendLimitSpan: cfg.OTPSendLimitWindow,
	})
	emailSender := notify.NewEmailSender(notify.EmailConfig{
		APIKey:      cfg.ResendAPIKey,
		FromAddress: cfg.SenderEmail,
	}, logger)
	smsSender := notify.NewSMSSender(notify.SMSConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		ServiceSID: cfg.TwilioVerifyServiceSID,
	}, logger)
	selector := feed.NewSelector(userRepo, logger, cfg.FeedLimit)
	matcher := matching.NewMatcher(db, userRepo, interactionRepo, matchRepo, emitter, logger)
	manager := conversation.NewManager(db, userRepo, matchRepo, messageRepo, emitter, logger)

	if err := registerDependencies(logger, userRepo, interactionRepo, matchRepo, messageRepo, issuer, hasher, otpStore, emailSender, smsSender, selector, matcher, manager); err != nil {
		return fmt.Errorf("failed to register dependencies: %w", err)
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(db, redisClient, version)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	authroutes.Register(api.Group("/auth"))
	promptroutes.Register(api.Group("/prompts"))
	adminroutes.Register(api.Group("/admin", middleware.AdminKey(cfg.AdminAPIKey)))

	authed := api.Group("", middleware.Auth(issuer))
	authroutes.RegisterMe(authed.Group("/auth"))
	verificationroutes.Register(authed.Group("/verification"))
	profileroutes.Register(authed.Group("/profile"))
	discoveryroutes.Register(authed.Group("/discovery"))
	matchroutes.Register(authed.Group("/matches"))
	messageroutes.Register(authed.Group("/messages"))
	subscriptionroutes.Register(authed.Group("/subscription"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infof("Received signal %s, shutting down", sig)
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func registerDependencies(
	logger ectologger.Logger,
	userRepo *urepo.Repository,
	interactionRepo *irepo.Repository,
	matchRepo *marepo.Repository,
	messageRepo *merepo.Repository,
	issuer *auth.TokenIssuer,
	hasher *auth.PasswordHasher,
	otpStore *otp.Store,
	emailSender *notify.EmailSender,
	smsSender *notify.SMSSender,
	selector *feed.Selector,
	matcher *matching.Matcher,
	manager *conversation.Manager,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*urepo.Repository](container, userRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*irepo.Repository](container, interactionRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*marepo.Repository](container, matchRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*merepo.Repository](container, messageRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*auth.TokenIssuer](container, issuer); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*auth.PasswordHasher](container, hasher); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*otp.Store](container, otpStore); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*notify.EmailSender](container, emailSender); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*notify.SMSSender](container, smsSender); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*feed.Selector](container, selector); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matching.Matcher](container, matcher); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*conversation.Manager](container, manager)
}
