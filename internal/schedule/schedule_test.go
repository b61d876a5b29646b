package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"officeconv/internal/batch"
	"officeconv/internal/runs"
)

type stubRunner struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (s *stubRunner) Run(ctx context.Context) (*batch.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}

	return &batch.Summary{}, nil
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type stubChecker struct {
	err error
}

func (s stubChecker) Check() error {
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadSpec(t *testing.T) {
	mgr := runs.NewManager(&stubRunner{}, discardLogger())

	_, err := New("every now and then", mgr, stubChecker{}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron spec")

	_, err = New("0 * * * *", mgr, stubChecker{}, discardLogger())
	assert.NoError(t, err)
}

func TestTickStartsPass(t *testing.T) {
	runner := &stubRunner{}
	mgr := runs.NewManager(runner, discardLogger())

	s, err := New("* * * * *", mgr, stubChecker{}, discardLogger())
	require.NoError(t, err)
	s.ctx = context.Background()

	s.tick()

	require.Eventually(t, func() bool {
		return runner.callCount() == 1 && !mgr.Busy()
	}, time.Second, 5*time.Millisecond)
}

func TestTickSkipsWhileActive(t *testing.T) {
	release := make(chan struct{})
	runner := &stubRunner{block: release}
	mgr := runs.NewManager(runner, discardLogger())

	s, err := New("* * * * *", mgr, stubChecker{}, discardLogger())
	require.NoError(t, err)
	s.ctx = context.Background()

	s.tick()
	require.Eventually(t, func() bool {
		return runner.callCount() == 1 && mgr.Busy()
	}, time.Second, 5*time.Millisecond)

	// second tick lands while the first pass is still running
	s.tick()
	assert.Equal(t, 1, runner.callCount())

	close(release)
	require.Eventually(t, func() bool { return !mgr.Busy() }, time.Second, 5*time.Millisecond)

	s.tick()
	require.Eventually(t, func() bool {
		return runner.callCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTickSkipsWhenConverterUnavailable(t *testing.T) {
	runner := &stubRunner{}
	mgr := runs.NewManager(runner, discardLogger())

	s, err := New("* * * * *", mgr, stubChecker{err: errors.New("binary not found")}, discardLogger())
	require.NoError(t, err)
	s.ctx = context.Background()

	s.tick()

	assert.Zero(t, runner.callCount(), "no pass against an unusable binary")
	assert.False(t, mgr.Busy())
}
