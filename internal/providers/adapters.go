package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// HTTPInvoker is the generic JSON-over-HTTP provider client. The national-ID
// registry, health-insurance registry, face-match vendor, SMS gateways and the
// certification authority all expose this shape: POST /{operation} with a flat
// JSON body, flat JSON back.
type HTTPInvoker struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPInvoker creates an invoker for a JSON HTTP provider.
func NewHTTPInvoker(name, baseURL, apiKey string) *HTTPInvoker {
	return &HTTPInvoker{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (i *HTTPInvoker) Name() string { return i.name }

func (i *HTTPInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	body := make(map[string]string, len(req.Params)+1)
	for k, v := range req.Params {
		body[k] = v
	}
	if len(req.Payload) > 0 {
		body["payload"] = base64.StdEncoding.EncodeToString(req.Payload)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", i.baseURL, req.Operation)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.apiKey)
	}

	httpResp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", i.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("%s returned status %d", i.name, httpResp.StatusCode)
	}

	var decoded map[string]any
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", i.name, err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s rejected request: %s", i.name, flatten(decoded)["error"])
	}

	return &Response{Data: flatten(decoded)}, nil
}

func (i *HTTPInvoker) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	httpResp, err := i.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s health probe failed: %w", i.name, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health probe returned status %d", i.name, httpResp.StatusCode)
	}
	return nil
}

func flatten(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
			// omitted
		default:
			encoded, _ := json.Marshal(val)
			out[k] = string(encoded)
		}
	}
	return out
}

// SNSAPI is the slice of the SNS client the invoker uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetSMSAttributes(ctx context.Context, params *sns.GetSMSAttributesInput, optFns ...func(*sns.Options)) (*sns.GetSMSAttributesOutput, error)
}

// SNSInvoker sends SMS through AWS SNS. It sits in the sms capability chain
// next to the HTTP gateway providers.
type SNSInvoker struct {
	name   string
	client SNSAPI
}

// NewSNSInvoker creates an SNS-backed SMS invoker.
func NewSNSInvoker(name string, client SNSAPI) *SNSInvoker {
	return &SNSInvoker{name: name, client: client}
}

func (i *SNSInvoker) Name() string { return i.name }

func (i *SNSInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	recipient := req.Params["recipient"]
	message := req.Params["message"]
	if recipient == "" || message == "" {
		return nil, fmt.Errorf("sns invoker requires recipient and message params")
	}

	out, err := i.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sns publish failed: %w", err)
	}

	return &Response{Data: map[string]string{
		"delivered":  "true",
		"message_id": aws.ToString(out.MessageId),
	}}, nil
}

// HealthCheck verifies the SNS client can reach the service.
func (i *SNSInvoker) HealthCheck(ctx context.Context) error {
	_, err := i.client.GetSMSAttributes(ctx, &sns.GetSMSAttributesInput{})
	if err != nil {
		return fmt.Errorf("sns health probe failed: %w", err)
	}
	return nil
}
