package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SOMET1010/montoitv6-sub000/internal/auth"
	"github.com/SOMET1010/montoitv6-sub000/internal/biometric"
	"github.com/SOMET1010/montoitv6-sub000/internal/cev"
	"github.com/SOMET1010/montoitv6-sub000/internal/config"
	"github.com/SOMET1010/montoitv6-sub000/internal/documents"
	"github.com/SOMET1010/montoitv6-sub000/internal/events"
	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/internal/notifications"
	"github.com/SOMET1010/montoitv6-sub000/internal/payments"
	"github.com/SOMET1010/montoitv6-sub000/internal/properties"
	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
	"github.com/SOMET1010/montoitv6-sub000/internal/settings"
	"github.com/SOMET1010/montoitv6-sub000/internal/trustscore"
	"github.com/SOMET1010/montoitv6-sub000/internal/verification"
	"github.com/SOMET1010/montoitv6-sub000/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// The notification tables are managed through gorm on the same connection.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	ctx := context.Background()

	// AWS clients
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	sesClient := sesv2.NewFromConfig(awsCfg)
	snsClient := sns.NewFromConfig(awsCfg)

	s3Client, err := storage.NewS3Client(ctx, storage.Options{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
	})
	if err != nil {
		logger.Fatal("Failed to create S3 client", zap.Error(err))
	}

	// Provider failover router
	providerRepo := providers.NewPostgresRepository(db)
	router := providers.NewRouter(providerRepo, logger, providers.RouterConfig{
		AttemptTimeout:   cfg.Providers.DispatchTimeout,
		SuccessRateFloor: cfg.Providers.SuccessRateFloor,
	})
	registerInvokers(ctx, router, providerRepo, snsClient, logger)

	healthMonitor := providers.NewHealthMonitor(router, providerRepo, logger, providers.HealthMonitorConfig{
		Schedule:       cfg.Providers.HealthCron,
		DegradedBelow:  cfg.Providers.DegradedBelow,
		UnhealthyBelow: cfg.Providers.UnhealthyBelow,
	})
	if err := healthMonitor.Start(); err != nil {
		logger.Fatal("Failed to start provider health monitor", zap.Error(err))
	}
	defer healthMonitor.Stop()

	// Event bus wiring verification to trust scoring
	bus := events.NewBus()

	// Trust scoring
	trustRepo := trustscore.NewPostgresRepository(db)
	trustSignals := trustscore.NewPostgresSignalSource(db)
	trustService := trustscore.NewService(trustRepo, trustSignals, logger)
	bus.Subscribe(trustService.OnStageTransition)

	// Biometric polling verifier
	biometricClient := biometric.NewRouterClient(router)
	biometricVerifier := biometric.NewVerifier(biometricClient, logger, biometric.Config{
		PollInterval: cfg.Verification.PollInterval,
		MaxPolls:     cfg.Verification.MaxPolls,
		Deadline:     cfg.Verification.PollDeadline,
	})

	// Verification pipeline
	verificationRepo := verification.NewPostgresRepository(db)
	verificationService := verification.NewService(
		verificationRepo,
		verification.NewRouterIdentityRegistry(router),
		verification.NewRouterHealthRegistry(router),
		biometric.NewMatchAdapter(biometricVerifier),
		bus,
		logger,
		verification.ServiceConfig{
			MinMatchScore: cfg.Verification.MinMatchScore,
			CallTimeout:   cfg.Verification.CallTimeout,
		},
	)

	// Notifications
	templates := notifications.NewTemplateManager(gormDB)
	notifier, err := notifications.NewService(gormDB, templates, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}
	notifier.RegisterChannel(notifications.ChannelSMS, notifications.NewRouterSMSChannel(router))
	notifier.RegisterChannel(notifications.ChannelWhatsApp, notifications.NewRouterWhatsAppChannel(router))
	notifier.RegisterChannel(notifications.ChannelEmail, notifications.NewSESEmailChannel(sesClient, cfg.AWS.SESSender))

	// Documents
	documentsRepo := documents.NewPostgresRepository(db)
	documentsService := documents.NewService(documentsRepo, s3Client, cfg.AWS.S3Bucket, logger)

	// Lease certification workflow
	leaseRepo := leases.NewPostgresRepository(db)
	cevService := cev.NewService(
		cev.NewPostgresRepository(db),
		leaseRepo,
		verificationService,
		trustService,
		cev.NewRouterAuthorityClient(router),
		notifier,
		cev.Config{
			ScoreFloor:      int(cfg.TrustScore.CertificationFloor),
			Fee:             certificationFee(cfg, logger),
			DocumentsWindow: cfg.Certification.DocumentsWindow,
			CertificateTTL:  cfg.Certification.CertificateTTL,
		},
		logger,
	)
	cevService.SetCertificateArchiver(documents.NewCertificateArchiver(
		documentsService, db, cfg.Certification.AuthorityName, logger))

	// Score recomputation follows every scoring signal, not only the
	// verification events on the bus.
	recomputeHook := func(ctx context.Context, subjectID uuid.UUID, reason string) {
		if _, err := trustService.Recompute(ctx, subjectID, reason); err != nil {
			logger.Error("Failed to recompute trust score",
				zap.String("subject_id", subjectID.String()),
				zap.Error(err))
		}
	}

	// Rent payments
	paymentsService := payments.NewService(payments.NewPostgresRepository(db), leaseRepo, logger)
	paymentsService.SetScoreRecomputeHook(recomputeHook)

	// Property listings
	propertiesService := properties.NewService(
		properties.NewPostgresRepository(db),
		properties.NewRouterGeocoder(router),
		logger,
	)

	// Profile and notification settings
	settingsService := settings.NewService(settings.NewPostgresRepository(db), gormDB, logger)
	settingsService.SetScoreRecomputeHook(recomputeHook)

	// HTTP surface
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := engine.Group("/api/v1")
	api.Use(auth.RequireAuth(cfg.Security.JWTSecret))
	{
		verification.NewHandler(verificationService, logger).RegisterRoutes(api)
		trustscore.NewHandler(trustService, logger).RegisterRoutes(api)
		documents.NewHandler(documentsService, logger).RegisterRoutes(api)
		payments.NewHandler(paymentsService, logger).RegisterRoutes(api)
		properties.NewHandler(propertiesService, logger).RegisterRoutes(api)
		settings.NewHandler(settingsService, logger).RegisterRoutes(api)
		cevHandler := cev.NewHandler(cevService, logger)
		cevHandler.RegisterRoutes(api)

		admin := api.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			providers.NewHandler(router, providerRepo, logger).RegisterRoutes(admin)
			cevHandler.RegisterAuthorityRoutes(admin)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func certificationFee(cfg *config.Config, logger *zap.Logger) decimal.Decimal {
	fee, err := decimal.NewFromString(cfg.Certification.Fee)
	if err != nil {
		logger.Fatal("Invalid certification fee", zap.String("fee", cfg.Certification.Fee), zap.Error(err))
	}
	return fee
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loadOpts...)
}

// registerInvokers binds a concrete client to every configured provider.
// HTTP providers read their API key from PROVIDER_<NAME>_API_KEY; the AWS SNS
// provider uses the SDK client directly.
func registerInvokers(ctx context.Context, router *providers.Router, repo providers.Repository, snsClient *sns.Client, logger *zap.Logger) {
	configs, err := repo.ListAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load provider configurations", zap.Error(err))
	}

	for _, pc := range configs {
		if pc.Name == "aws_sns" {
			router.RegisterInvoker(providers.NewSNSInvoker(pc.Name, snsClient))
			continue
		}
		apiKey := os.Getenv("PROVIDER_" + strings.ToUpper(pc.Name) + "_API_KEY")
		router.RegisterInvoker(providers.NewHTTPInvoker(pc.Name, pc.Endpoint, apiKey))
	}
	logger.Info("Provider invokers registered", zap.Int("count", len(configs)))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
