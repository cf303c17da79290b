package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
)

// singleProviderRepo serves one enabled, healthy provider for its capability
// and swallows the attempt bookkeeping.
type singleProviderRepo struct {
	config *providers.ProviderConfig
}

func (r *singleProviderRepo) ListByCapability(ctx context.Context, capability providers.Capability) ([]*providers.ProviderConfig, error) {
	if capability != r.config.Capability {
		return nil, nil
	}
	return []*providers.ProviderConfig{r.config}, nil
}

func (r *singleProviderRepo) ListAll(ctx context.Context) ([]*providers.ProviderConfig, error) {
	return []*providers.ProviderConfig{r.config}, nil
}

func (r *singleProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*providers.ProviderConfig, error) {
	return r.config, nil
}

func (r *singleProviderRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return nil
}

func (r *singleProviderRepo) SetPriority(ctx context.Context, id uuid.UUID, priority int) error {
	return nil
}

func (r *singleProviderRepo) SetHealth(ctx context.Context, id uuid.UUID, health providers.HealthStatus) error {
	return nil
}

func (r *singleProviderRepo) RecordAttempt(ctx context.Context, attempt *providers.DispatchAttempt) error {
	return nil
}

func (r *singleProviderRepo) ListAttempts(ctx context.Context, since time.Time, limit int) ([]*providers.DispatchAttempt, error) {
	return nil, nil
}

func (r *singleProviderRepo) UpdateRollingMetrics(ctx context.Context, id uuid.UUID, succeeded bool, latencyMs float64) error {
	return nil
}

type capturingSNS struct {
	published *sns.PublishInput
}

func (c *capturingSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	c.published = params
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func (c *capturingSNS) GetSMSAttributes(ctx context.Context, params *sns.GetSMSAttributesInput, optFns ...func(*sns.Options)) (*sns.GetSMSAttributesOutput, error) {
	return &sns.GetSMSAttributesOutput{}, nil
}

func TestRouterSMSChannel_DeliversThroughSNSInvoker(t *testing.T) {
	repo := &singleProviderRepo{config: &providers.ProviderConfig{
		ID:         uuid.New(),
		Capability: providers.CapabilitySMS,
		Name:       "aws_sns",
		Priority:   1,
		Enabled:    true,
		Health:     providers.HealthHealthy,
	}}
	router := providers.NewRouter(repo, zap.NewNop(), providers.RouterConfig{})

	snsAPI := &capturingSNS{}
	router.RegisterInvoker(providers.NewSNSInvoker("aws_sns", snsAPI))

	channel := NewRouterSMSChannel(router)
	err := channel.Send(context.Background(), Message{
		Recipient: "+2250701020304",
		Body:      "Votre dossier de certification a ete soumis",
	})

	assert.NoError(t, err)
	if assert.NotNil(t, snsAPI.published) {
		assert.Equal(t, "+2250701020304", aws.ToString(snsAPI.published.PhoneNumber))
		assert.Equal(t, "Votre dossier de certification a ete soumis", aws.ToString(snsAPI.published.Message))
	}
}
