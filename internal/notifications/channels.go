package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
)

// Message is one rendered message ready for a channel.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Channel delivers a rendered message.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// RouterSMSChannel sends SMS through the provider failover chain.
type RouterSMSChannel struct {
	router *providers.Router
}

func NewRouterSMSChannel(router *providers.Router) *RouterSMSChannel {
	return &RouterSMSChannel{router: router}
}

func (c *RouterSMSChannel) Send(ctx context.Context, msg Message) error {
	_, err := c.router.Dispatch(ctx, providers.CapabilitySMS, providers.Request{
		Operation: "send",
		Params: map[string]string{
			"recipient": msg.Recipient,
			"message":   msg.Body,
		},
	})
	return err
}

// RouterWhatsAppChannel sends WhatsApp messages through the provider chain.
type RouterWhatsAppChannel struct {
	router *providers.Router
}

func NewRouterWhatsAppChannel(router *providers.Router) *RouterWhatsAppChannel {
	return &RouterWhatsAppChannel{router: router}
}

func (c *RouterWhatsAppChannel) Send(ctx context.Context, msg Message) error {
	_, err := c.router.Dispatch(ctx, providers.CapabilityWhatsApp, providers.Request{
		Operation: "send",
		Params: map[string]string{
			"recipient": msg.Recipient,
			"message":   msg.Body,
		},
	})
	return err
}

// SESEmailChannel sends email through Amazon SES.
type SESEmailChannel struct {
	client *sesv2.Client
	sender string
}

func NewSESEmailChannel(client *sesv2.Client, sender string) *SESEmailChannel {
	return &SESEmailChannel{client: client, sender: sender}
}

func (c *SESEmailChannel) Send(ctx context.Context, msg Message) error {
	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.Recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
