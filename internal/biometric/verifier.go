package biometric

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
	"github.com/SOMET1010/montoitv6-sub000/internal/verification"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// ErrCancelled is returned from Await when the session was cancelled locally.
var ErrCancelled = errors.New("biometric session cancelled")

// Submission is the provider's answer to a submit call. The subject completes
// the liveness check out-of-band at ActionURL while we poll.
type Submission struct {
	SessionID string
	ActionURL string
}

// PollStatus is the provider-reported session state.
type PollStatus string

const (
	PollPending  PollStatus = "pending"
	PollVerified PollStatus = "verified"
	PollFailed   PollStatus = "failed"
)

// PollResult is one poll answer. MatchScore is only meaningful on a terminal
// verified result; it is a float in [0,1] and no acceptance threshold is
// applied here.
type PollResult struct {
	Status     PollStatus
	MatchScore float64
	Reason     string
}

// Client is the face-match provider wire contract.
type Client interface {
	Submit(ctx context.Context, documentImageURL, selfieURL string) (*Submission, error)
	Poll(ctx context.Context, sessionID string) (*PollResult, error)
}

// Result is the terminal outcome of an awaited session.
type Result struct {
	SessionID  string
	ActionURL  string
	Verified   bool
	MatchScore float64
	Reason     string
}

// Config bounds the polling loop.
type Config struct {
	PollInterval time.Duration
	MaxPolls     int
	Deadline     time.Duration
}

// DefaultConfig matches the production pipeline: poll every 3s, at most 100
// attempts, at most 5 minutes wall clock.
func DefaultConfig() Config {
	return Config{
		PollInterval: 3 * time.Second,
		MaxPolls:     100,
		Deadline:     5 * time.Minute,
	}
}

// Verifier drives the submit-then-poll protocol for providers that need
// out-of-band completion. Sessions are cancellable and release their timers on
// every exit path, including timeout.
type Verifier struct {
	client Client
	logger *zap.Logger
	config Config
}

// NewVerifier creates a polling verifier.
func NewVerifier(client Client, logger *zap.Logger, config Config) *Verifier {
	if config.PollInterval == 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.MaxPolls == 0 {
		config.MaxPolls = DefaultConfig().MaxPolls
	}
	if config.Deadline == 0 {
		config.Deadline = DefaultConfig().Deadline
	}
	return &Verifier{client: client, logger: logger, config: config}
}

// Session is one in-flight biometric check owned by the caller.
type Session struct {
	ID        string
	ActionURL string

	verifier   *Verifier
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

// Submit registers the evidence package with the provider and returns the
// session to await.
func (v *Verifier) Submit(ctx context.Context, documentImageURL, selfieURL string) (*Session, error) {
	sub, err := v.client.Submit(ctx, documentImageURL, selfieURL)
	if err != nil {
		return nil, fmt.Errorf("biometric submit failed: %w", err)
	}
	return &Session{
		ID:        sub.SessionID,
		ActionURL: sub.ActionURL,
		verifier:  v,
		cancelCh:  make(chan struct{}),
	}, nil
}

// Cancel stops an in-flight Await and lets it release its timers. Always safe
// to call, including after a terminal result or repeatedly.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

// Await polls until the provider reports a terminal result or the attempt
// budget or wall-clock deadline is exceeded, whichever comes first. Exhaustion
// yields TimeoutError: a retryable non-result, never "rejected by provider".
func (s *Session) Await(ctx context.Context) (*Result, error) {
	v := s.verifier
	ticker := time.NewTicker(v.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(v.config.Deadline)
	defer deadline.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.cancelCh:
			return nil, ErrCancelled
		case <-deadline.C:
			return nil, &errs.TimeoutError{Op: "biometric verification", Budget: v.config.Deadline}
		case <-ticker.C:
			attempts++
			result, err := v.client.Poll(ctx, s.ID)
			if err != nil {
				// Transient poll failure consumes an attempt but does not end
				// the session; the budget bounds total effort.
				v.logger.Warn("Biometric poll failed",
					zap.String("session_id", s.ID),
					zap.Int("attempt", attempts),
					zap.Error(err))
			} else {
				switch result.Status {
				case PollVerified:
					return &Result{
						SessionID:  s.ID,
						ActionURL:  s.ActionURL,
						Verified:   true,
						MatchScore: result.MatchScore,
					}, nil
				case PollFailed:
					return &Result{
						SessionID: s.ID,
						ActionURL: s.ActionURL,
						Verified:  false,
						Reason:    result.Reason,
					}, nil
				}
			}
			if attempts >= v.config.MaxPolls {
				return nil, &errs.TimeoutError{Op: "biometric verification", Budget: v.config.Deadline}
			}
		}
	}
}

// MatchAdapter exposes the polling protocol as the synchronous face matcher
// the verification state machine consumes.
type MatchAdapter struct {
	verifier *Verifier
}

func NewMatchAdapter(verifier *Verifier) *MatchAdapter {
	return &MatchAdapter{verifier: verifier}
}

func (a *MatchAdapter) Verify(ctx context.Context, documentImageURL, selfieURL string) (*verification.FaceMatchResult, error) {
	session, err := a.verifier.Submit(ctx, documentImageURL, selfieURL)
	if err != nil {
		return nil, err
	}
	defer session.Cancel()

	result, err := session.Await(ctx)
	if err != nil {
		return nil, err
	}
	return &verification.FaceMatchResult{
		SessionID:  result.SessionID,
		Verified:   result.Verified,
		MatchScore: result.MatchScore,
		Reason:     result.Reason,
	}, nil
}

// RouterClient resolves face-match calls through the provider failover router.
type RouterClient struct {
	router *providers.Router
}

func NewRouterClient(router *providers.Router) *RouterClient {
	return &RouterClient{router: router}
}

func (c *RouterClient) Submit(ctx context.Context, documentImageURL, selfieURL string) (*Submission, error) {
	resp, err := c.router.Dispatch(ctx, providers.CapabilityFaceMatch, providers.Request{
		Operation: "submit",
		Params: map[string]string{
			"document_image_url": documentImageURL,
			"selfie_url":         selfieURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Submission{
		SessionID: resp.Data["session_id"],
		ActionURL: resp.Data["action_url"],
	}, nil
}

func (c *RouterClient) Poll(ctx context.Context, sessionID string) (*PollResult, error) {
	resp, err := c.router.Dispatch(ctx, providers.CapabilityFaceMatch, providers.Request{
		Operation: "poll",
		Params:    map[string]string{"session_id": sessionID},
	})
	if err != nil {
		return nil, err
	}

	result := &PollResult{
		Status: PollStatus(resp.Data["status"]),
		Reason: resp.Data["reason"],
	}
	if raw, ok := resp.Data["match_score"]; ok {
		if score, err := strconv.ParseFloat(raw, 64); err == nil {
			result.MatchScore = score
		}
	}
	return result, nil
}
