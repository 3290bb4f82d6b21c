package audit

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.ndjson")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	events := []*Event{
		{OccurredAt: time.Now().UTC(), Action: ActionWorkspaceCreate, ActorID: "u1"},
		{OccurredAt: time.Now().UTC(), Action: ActionWorkspaceCreate, ActorID: "u1", WorkspaceID: "w1"},
	}
	for _, event := range events {
		require.NoError(t, logger.Record(context.Background(), event))
	}
	require.NoError(t, logger.Close())

	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionWorkspaceCreate, got[0].Action)
	assert.Equal(t, "w1", got[1].WorkspaceID)
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.ndjson")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.Record(context.Background(), &Event{
				OccurredAt: time.Now().UTC(),
				Action:     ActionMemberAdd,
			})
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	// Every line must still be parseable on its own.
	got, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, got, writers)
}

func TestMultiLoggerContinuesPastFailure(t *testing.T) {
	good := &memorySink{}
	multi := NewMultiLogger(&failingSink{}, good)

	err := multi.Record(context.Background(), &Event{Action: ActionTeamCreate})
	require.Error(t, err)
	assert.Len(t, good.events, 1)
}
