package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Capability is a category of external functionality served by one or more
// interchangeable providers.
type Capability string

const (
	CapabilityIdentityRegistry Capability = "identity_registry"
	CapabilityHealthRegistry   Capability = "health_registry"
	CapabilityFaceMatch        Capability = "face_match"
	CapabilitySMS              Capability = "sms"
	CapabilityWhatsApp         Capability = "whatsapp"
	CapabilityCertification    Capability = "certification"
	CapabilityMaps             Capability = "maps"
)

// HealthStatus is the rolling health classification of a provider.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ProviderConfig is one row per capability x provider. Health and rolling
// metrics are written by the health/telemetry loop; dispatch reads a snapshot
// and only appends its own attempt outcomes.
type ProviderConfig struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Capability  Capability      `json:"capability" db:"capability"`
	Name        string          `json:"name" db:"name"`
	Priority    int             `json:"priority" db:"priority"`
	Enabled     bool            `json:"enabled" db:"enabled"`
	Health      HealthStatus    `json:"health" db:"health"`
	SuccessRate float64         `json:"success_rate" db:"success_rate"`
	AvgLatency  float64         `json:"avg_latency_ms" db:"avg_latency_ms"`
	UnitCost    decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	Endpoint    string          `json:"endpoint" db:"endpoint"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DispatchAttempt is one append-only record of a single provider attempt
// inside a dispatch.
type DispatchAttempt struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	DispatchID uuid.UUID  `json:"dispatch_id" db:"dispatch_id"`
	ProviderID uuid.UUID  `json:"provider_id" db:"provider_id"`
	Capability Capability `json:"capability" db:"capability"`
	Succeeded  bool       `json:"succeeded" db:"succeeded"`
	LatencyMs  float64    `json:"latency_ms" db:"latency_ms"`
	ErrorText  string     `json:"error_text,omitempty" db:"error_text"`
	AttemptAt  time.Time  `json:"attempt_at" db:"attempt_at"`
}

// Request is the capability-agnostic payload handed to an invoker.
type Request struct {
	Operation string
	Params    map[string]string
	Payload   []byte
}

// Response is the capability-agnostic result of an invocation.
type Response struct {
	Data     map[string]string
	Payload  []byte
	Provider string
}

// Invoker is the concrete client for one named provider. Implementations live
// in adapters.go and wrap the real upstream protocol.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, req Request) (*Response, error)
	HealthCheck(ctx context.Context) error
}
