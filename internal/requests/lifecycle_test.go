package requests_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/requests"
)

type fakeStore struct {
	record      *requests.Record
	loadErr     error
	claimErr    error
	failedCalls []string
	annotations []string
	cleared     int
}

func (f *fakeStore) Load(ctx context.Context, requestID string) (*requests.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.record, nil
}

func (f *fakeStore) Claim(ctx context.Context, requestID string) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.record = &requests.Record{RequestID: requestID, Status: requests.InProgress}
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, requestID, reason string, processedAt time.Time) error {
	f.failedCalls = append(f.failedCalls, reason)
	f.record.Status = requests.Failed
	f.record.FailureReason = reason
	return nil
}

func (f *fakeStore) AnnotatePublishFailure(ctx context.Context, requestID, reason string) error {
	f.annotations = append(f.annotations, reason)
	return nil
}

func (f *fakeStore) ClearFailureReason(ctx context.Context, requestID string) error {
	f.cleared++
	return nil
}

type msg struct {
	RequestId string
}

func TestEngine_AbsentRowIsAcked(t *testing.T) {
	store := &fakeStore{record: nil}
	engine := &requests.Engine[msg]{
		Store:  store,
		Logger: zerolog.Nop(),
		Execute: func(ctx context.Context, m msg) (string, error) {
			t.Fatal("Execute should not run for an absent row")
			return "", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error {
			return nil
		}),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
}

func TestEngine_InProgressIsAckedWithoutExecuting(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.InProgress}}
	engine := &requests.Engine[msg]{
		Store:  store,
		Logger: zerolog.Nop(),
		Execute: func(ctx context.Context, m msg) (string, error) {
			t.Fatal("Execute should not run while another worker holds the claim")
			return "", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error { return nil }),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
}

func TestEngine_CompletedWithoutPublishFailureIsNoOp(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Completed}}
	published := 0
	engine := &requests.Engine[msg]{
		Store:  store,
		Logger: zerolog.Nop(),
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error {
			published++
			return nil
		}),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
	assert.Zero(t, published)
}

func TestEngine_CompletedWithPublishFailureRepublishesOnce(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Completed, FailureReason: "Publish failed: boom"}}
	published := 0
	engine := &requests.Engine[msg]{
		Store:  store,
		Logger: zerolog.Nop(),
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error {
			published++
			return nil
		}),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, store.cleared)
}

func TestEngine_PendingClaimsExecutesAndPublishes(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Pending}}
	var executed, published bool
	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			executed = true
			return "output-1", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error {
			published = true
			assert.Equal(t, "output-1", outputID)
			return nil
		}),
		Logger: zerolog.Nop(),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
	assert.True(t, executed)
	assert.True(t, published)
}

func TestEngine_FailedRowIsReplayedThroughClaim(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Failed, FailureReason: "boom"}}
	var executed bool
	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			executed = true
			return "output-1", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error { return nil }),
		Logger:    zerolog.Nop(),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
	assert.True(t, executed)
}

func TestEngine_ConcurrentClaimIsAcked(t *testing.T) {
	store := &fakeStore{
		record:   &requests.Record{RequestID: "r1", Status: requests.Pending},
		claimErr: requests.ErrConcurrentClaim,
	}
	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			t.Fatal("Execute should not run after a lost claim race")
			return "", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error { return nil }),
		Logger:    zerolog.Nop(),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.True(t, result.Success)
}

func TestEngine_DomainInvariantFailureMarksFailedAndDiscards(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Pending}}
	domainErr := errors.New("sire and dam belong to different owners")
	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			return "", domainErr
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error { return nil }),
		Logger:    zerolog.Nop(),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.False(t, result.Success)
	assert.False(t, result.Requeue)
	require.Len(t, store.failedCalls, 1)
	assert.Equal(t, requests.Failed, store.record.Status)
}

func TestEngine_CancelledMidFlightLeavesRowInProgress(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Pending}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			return "", context.Canceled
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error { return nil }),
		Logger:    zerolog.Nop(),
	}

	result := engine.Process(ctx, "r1", msg{RequestId: "r1"})
	assert.False(t, result.Success)
	assert.True(t, result.Requeue)
	assert.Empty(t, store.failedCalls)
	assert.Equal(t, requests.InProgress, store.record.Status)
}

func TestEngine_PublishFailureAnnotatesCompletedRowAndDiscards(t *testing.T) {
	store := &fakeStore{record: &requests.Record{RequestID: "r1", Status: requests.Pending}}
	pubErr := errors.New("broker unreachable")
	engine := &requests.Engine[msg]{
		Store: store,
		Execute: func(ctx context.Context, m msg) (string, error) {
			return "output-1", nil
		},
		Publisher: requests.PublisherFunc[msg](func(ctx context.Context, m msg, outputID string) error {
			return pubErr
		}),
		Logger: zerolog.Nop(),
	}

	result := engine.Process(context.Background(), "r1", msg{RequestId: "r1"})
	assert.False(t, result.Success)
	assert.False(t, result.Requeue)
	require.Len(t, store.annotations, 1)
	assert.Equal(t, "Publish failed: broker unreachable", store.annotations[0])
}
