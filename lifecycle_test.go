package ultralog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/ultralog/remote"
)

// TestConcurrentCloseAndLog races producers against Close. Every call ends up
// either written or counted as logged after close.
func TestConcurrentCloseAndLog(t *testing.T) {
	logger, path, _ := createTestLogger(t)

	const producers, perProducer = 8, 200
	started := make(chan struct{})

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		g.Go(func() error {
			<-started
			for i := 0; i < perProducer; i++ {
				logger.Info("race", i)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-started
		time.Sleep(time.Millisecond)
		return logger.Close()
	})

	close(started)
	require.NoError(t, g.Wait())

	stats := logger.Stats()
	assert.Equal(t, uint64(producers*perProducer), stats.Processed+stats.ClosedLogs)
	assert.Len(t, readLines(t, path), int(stats.Processed))
}

func TestCloseFromManyGoroutines(t *testing.T) {
	logger, _, _ := createTestLogger(t)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(logger.Close)
	}
	assert.NoError(t, g.Wait())
	assert.True(t, logger.Closed())
}

// blockingSender holds every request until its context ends
type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ remote.Batch) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRemoteCloseIsBounded(t *testing.T) {
	logger, err := remoteBuilder(blockingSender{}).
		Batching(1, 10).
		Override("shutdown_timeout_ms=50").
		Build()
	require.NoError(t, err)

	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	start := time.Now()
	_ = logger.Close()
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Eventually(t, func() bool {
		return logger.Stats().DeliveryDropped == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(0), logger.Stats().RecordsSent)
}
