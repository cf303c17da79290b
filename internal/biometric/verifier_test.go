package biometric

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

type fakeClient struct {
	polls   atomic.Int64
	results []PollResult
	pollErr error
}

func (f *fakeClient) Submit(ctx context.Context, documentImageURL, selfieURL string) (*Submission, error) {
	return &Submission{SessionID: "sess-1", ActionURL: "https://verify.example.ci/sess-1"}, nil
}

func (f *fakeClient) Poll(ctx context.Context, sessionID string) (*PollResult, error) {
	if f.pollErr != nil {
		f.polls.Add(1)
		return nil, f.pollErr
	}
	n := f.polls.Add(1)
	idx := int(n) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	result := f.results[idx]
	return &result, nil
}

func testConfig(maxPolls int, deadline time.Duration) Config {
	return Config{
		PollInterval: time.Millisecond,
		MaxPolls:     maxPolls,
		Deadline:     deadline,
	}
}

func TestAwait_ReturnsVerifiedResultAfterPendingPolls(t *testing.T) {
	client := &fakeClient{results: []PollResult{
		{Status: PollPending},
		{Status: PollPending},
		{Status: PollVerified, MatchScore: 0.93},
	}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(100, time.Second))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.NotEmpty(t, session.ActionURL)

	result, err := session.Await(context.Background())
	assert.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 0.93, result.MatchScore)
	assert.EqualValues(t, 3, client.polls.Load())
}

func TestAwait_ReturnsFailedResultWithReason(t *testing.T) {
	client := &fakeClient{results: []PollResult{
		{Status: PollFailed, Reason: "liveness check failed"},
	}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(100, time.Second))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	result, err := session.Await(context.Background())
	assert.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, "liveness check failed", result.Reason)
}

func TestAwait_TimesOutAfterAttemptBudget(t *testing.T) {
	client := &fakeClient{results: []PollResult{{Status: PollPending}}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(5, time.Minute))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	_, err = session.Await(context.Background())
	var timeoutErr *errs.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.True(t, errs.IsRetryable(err))
	assert.EqualValues(t, 5, client.polls.Load())
}

func TestAwait_TimesOutAtWallClockDeadline(t *testing.T) {
	client := &fakeClient{results: []PollResult{{Status: PollPending}}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(100000, 20*time.Millisecond))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	_, err = session.Await(context.Background())
	var timeoutErr *errs.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestAwait_PollErrorsConsumeBudgetWithoutFailingSession(t *testing.T) {
	client := &fakeClient{pollErr: assert.AnError}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(4, time.Minute))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	_, err = session.Await(context.Background())
	var timeoutErr *errs.TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.EqualValues(t, 4, client.polls.Load())
}

func TestCancel_StopsAwaitAndIsIdempotent(t *testing.T) {
	client := &fakeClient{results: []PollResult{{Status: PollPending}}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(100000, time.Minute))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := session.Await(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	session.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("await did not return after cancel")
	}

	// Cancelling again, after the session already ended, must not panic.
	session.Cancel()
	session.Cancel()
}

func TestAwait_HonoursCallerContext(t *testing.T) {
	client := &fakeClient{results: []PollResult{{Status: PollPending}}}
	verifier := NewVerifier(client, zap.NewNop(), testConfig(100000, time.Minute))

	session, err := verifier.Submit(context.Background(), "https://cdn/doc.jpg", "https://cdn/selfie.jpg")
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = session.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
