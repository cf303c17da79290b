package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Security      SecurityConfig      `json:"security"`
	AWS           AWSConfig           `json:"aws"`
	Verification  VerificationConfig  `json:"verification"`
	TrustScore    TrustScoreConfig    `json:"trust_score"`
	Certification CertificationConfig `json:"certification"`
	Providers     ProvidersConfig     `json:"providers"`
	Payments      PaymentsConfig      `json:"payments"`
	Logging       LoggingConfig       `json:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// SecurityConfig holds auth settings
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// AWSConfig holds the settings shared by the S3, SES and SNS clients
type AWSConfig struct {
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	S3Bucket        string `json:"s3_bucket"`
	S3Endpoint      string `json:"s3_endpoint"`
	SESSender       string `json:"ses_sender"`
}

// VerificationConfig drives the identity verification pipeline. The biometric
// settings bound the polling loop; MinMatchScore is applied by the caller of
// the verifier, not inside it, so policy can vary by use case.
type VerificationConfig struct {
	PollInterval  time.Duration `json:"poll_interval"`
	MaxPolls      int           `json:"max_polls"`
	PollDeadline  time.Duration `json:"poll_deadline"`
	MinMatchScore float64       `json:"min_match_score"`
	CallTimeout   time.Duration `json:"call_timeout"`
}

// TrustScoreConfig holds scoring policy knobs
type TrustScoreConfig struct {
	CertificationFloor float64 `json:"certification_floor"`
}

// CertificationConfig holds electronic certificate settings
type CertificationConfig struct {
	AuthorityName   string        `json:"authority_name"`
	Fee             string        `json:"fee"`
	DocumentsWindow time.Duration `json:"documents_window"`
	CertificateTTL  time.Duration `json:"certificate_ttl"`
}

// ProvidersConfig drives the failover router
type ProvidersConfig struct {
	DispatchTimeout  time.Duration `json:"dispatch_timeout"`
	HealthCron       string        `json:"health_cron"`
	SuccessRateFloor float64       `json:"success_rate_floor"`
	DegradedBelow    float64       `json:"degraded_below"`
	UnhealthyBelow   float64       `json:"unhealthy_below"`
}

// PaymentsConfig drives the overdue installment sweep
type PaymentsConfig struct {
	OverdueCron string `json:"overdue_cron"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := defaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			ReadTimeout: 15 * time.Second,
			IdleTimeout: time.Minute,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "montoit_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		AWS: AWSConfig{
			Region:    "eu-west-1",
			S3Bucket:  "montoit-documents",
			SESSender: "no-reply@montoit.ci",
		},
		Verification: VerificationConfig{
			PollInterval:  3 * time.Second,
			MaxPolls:      100,
			PollDeadline:  5 * time.Minute,
			MinMatchScore: 0.70,
			CallTimeout:   10 * time.Second,
		},
		TrustScore: TrustScoreConfig{
			CertificationFloor: 50,
		},
		Certification: CertificationConfig{
			AuthorityName:   "ANSUT",
			Fee:             "15000",
			DocumentsWindow: 7 * 24 * time.Hour,
			CertificateTTL:  365 * 24 * time.Hour,
		},
		Providers: ProvidersConfig{
			DispatchTimeout:  10 * time.Second,
			HealthCron:       "0 */2 * * * *",
			SuccessRateFloor: 0.90,
			DegradedBelow:    0.95,
			UnhealthyBelow:   0.50,
		},
		Payments: PaymentsConfig{
			OverdueCron: "0 0 * * * *",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.AWS.Region = region
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		config.AWS.AccessKeyID = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		config.AWS.SecretAccessKey = secret
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.AWS.S3Bucket = bucket
	}
	if floor := os.Getenv("TRUST_SCORE_FLOOR"); floor != "" {
		if f, err := strconv.ParseFloat(floor, 64); err == nil {
			config.TrustScore.CertificationFloor = f
		}
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
