package asyncop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchAndPollSuccess(t *testing.T) {
	tr := NewTracker(nil)

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		return nil
	})
	tr.Wait()

	st, err := tr.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st.State)
}

func TestDispatchFailureKeepsReason(t *testing.T) {
	tr := NewTracker(nil)

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		return errors.New("bad input")
	})
	tr.Wait()

	st, err := tr.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, Failed, st.State)
	assert.Equal(t, "bad input", st.Reason)
}

func TestPollIsNonBlocking(t *testing.T) {
	tr := NewTracker(nil)
	release := make(chan struct{})

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	st, err := tr.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, Pending, st.State)
	assert.False(t, st.Terminal())

	close(release)
	tr.Wait()
}

func TestConsumePendingIsError(t *testing.T) {
	tr := NewTracker(nil)
	release := make(chan struct{})

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	_, err := tr.Consume(id)
	assert.ErrorIs(t, err, ErrJobNotFinished)

	close(release)
	tr.Wait()

	st, err := tr.Consume(id)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, st.State)

	// Entry is gone after consumption.
	_, err = tr.Poll(id)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestCancelDiscardsLateResult(t *testing.T) {
	tr := NewTracker(nil)
	release := make(chan struct{})

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return errors.New("too late")
	})

	tr.Cancel(id)
	_, err := tr.Poll(id)
	assert.ErrorIs(t, err, ErrUnknownJob)

	// The late completion must be dropped silently, not panic.
	close(release)
	tr.Wait()
}

func TestCancelStopsJobContext(t *testing.T) {
	tr := NewTracker(nil)
	stopped := make(chan struct{})

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	tr.Cancel(id)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not cancelled")
	}
	tr.Wait()
}

func TestPendingListing(t *testing.T) {
	tr := NewTracker(nil)
	release := make(chan struct{})

	id := tr.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	assert.Equal(t, []JobID{id}, tr.Pending())

	close(release)
	tr.Wait()
	assert.Empty(t, tr.Pending())
}
