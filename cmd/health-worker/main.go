package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/config"
	"github.com/SOMET1010/montoitv6-sub000/internal/leases"
	"github.com/SOMET1010/montoitv6-sub000/internal/payments"
	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
)

// The health worker runs the periodic sweeps as a standalone process, so API
// replicas never race each other writing health status or marking
// installments late.
func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	var awsCfg aws.Config
	if awsCfg, err = awsconfig.LoadDefaultConfig(ctx, loadOpts...); err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	snsClient := sns.NewFromConfig(awsCfg)

	repo := providers.NewPostgresRepository(db)
	router := providers.NewRouter(repo, logger, providers.RouterConfig{
		AttemptTimeout:   cfg.Providers.DispatchTimeout,
		SuccessRateFloor: cfg.Providers.SuccessRateFloor,
	})

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

	monitor := providers.NewHealthMonitor(router, repo, logger, providers.HealthMonitorConfig{
		Schedule:       cfg.Providers.HealthCron,
		DegradedBelow:  cfg.Providers.DegradedBelow,
		UnhealthyBelow: cfg.Providers.UnhealthyBelow,
	})
	if err := monitor.Start(); err != nil {
		logger.Fatal("Failed to start health monitor", zap.Error(err))
	}
	logger.Info("Provider health worker started",
		zap.String("schedule", cfg.Providers.HealthCron),
		zap.Int("providers", len(configs)))

	paymentsService := payments.NewService(
		payments.NewPostgresRepository(db), leases.NewPostgresRepository(db), logger)
	sweeper := payments.NewOverdueSweeper(paymentsService, logger, payments.OverdueSweeperConfig{
		Schedule: cfg.Payments.OverdueCron,
	})
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start overdue payment sweeper", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received")
	sweeper.Stop()
	monitor.Stop()
	logger.Info("Provider health worker stopped")
}
