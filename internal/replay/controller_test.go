package replay_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/replay"
)

type fakeReplayer struct {
	mu          sync.Mutex
	messages    map[string]any
	nonTerminal []string
	loadErr     error
}

func (f *fakeReplayer) LoadForReplay(ctx context.Context, requestID string) (any, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[requestID]
	if !ok {
		return nil, nil
	}
	return msg, nil
}

func (f *fakeReplayer) ListNonTerminal(ctx context.Context) ([]string, error) {
	return f.nonTerminal, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []any
	failFor   map[any]error
}

func (f *fakePublisher) Publish(ctx context.Context, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[value]; ok {
		return err
	}
	f.published = append(f.published, value)
	return nil
}

func TestController_ReplayOne_RepublishesReconstructedMessage(t *testing.T) {
	replayer := &fakeReplayer{messages: map[string]any{"r1": "requested-1"}}
	publisher := &fakePublisher{}
	controller := &replay.Controller{Replayer: replayer, Publisher: publisher, Logger: zerolog.Nop()}

	require.NoError(t, controller.ReplayOne(context.Background(), "r1"))
	assert.Equal(t, []any{"requested-1"}, publisher.published)
}

func TestController_ReplayOne_NotFound(t *testing.T) {
	replayer := &fakeReplayer{messages: map[string]any{}}
	publisher := &fakePublisher{}
	controller := &replay.Controller{Replayer: replayer, Publisher: publisher, Logger: zerolog.Nop()}

	err := controller.ReplayOne(context.Background(), "missing")
	assert.ErrorIs(t, err, replay.ErrNotFound)
}

func TestController_ReplayAllNonComplete_BoundedParallelAndPartialFailureTolerant(t *testing.T) {
	replayer := &fakeReplayer{
		messages: map[string]any{
			"r1": "msg-1",
			"r2": "msg-2",
			"r3": "msg-3",
		},
		nonTerminal: []string{"r1", "r2", "r3"},
	}
	publisher := &fakePublisher{failFor: map[any]error{"msg-2": errors.New("broker down")}}
	controller := &replay.Controller{Replayer: replayer, Publisher: publisher, Logger: zerolog.Nop()}

	count, err := controller.ReplayAllNonComplete(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []any{"msg-1", "msg-3"}, publisher.published)
}
